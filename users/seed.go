package users

// DemoPassword is the password given to every seeded demo account.
const DemoPassword = "Clinic123"

// DemoUsers returns one account per clinic role plus a doctor who also
// administers the clinic. Used to seed the development backend.
func DemoUsers() []*User {
	return []*User{
		{
			ID:        "user-admin",
			FirstName: "Ada",
			LastName:  "Admin",
			Email:     "admin@clinic.test",
			Roles:     []RoleType{RoleAdmin},
		},
		{
			ID:        "user-doctor",
			FirstName: "Derek",
			LastName:  "Doctor",
			Email:     "doctor@clinic.test",
			Roles:     []RoleType{RoleDoctor},
		},
		{
			ID:        "user-chief",
			FirstName: "Cara",
			LastName:  "Chief",
			Email:     "chief@clinic.test",
			Roles:     []RoleType{RoleDoctor, RoleAdmin},
		},
		{
			ID:        "user-reception",
			FirstName: "Rita",
			LastName:  "Reception",
			Email:     "reception@clinic.test",
			Roles:     []RoleType{RoleReceptionist},
		},
		{
			ID:        "user-patient",
			FirstName: "Paul",
			LastName:  "Patient",
			Email:     "patient@clinic.test",
			Roles:     []RoleType{RolePatient},
		},
	}
}
