package server

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-clinic-client/users"
)

// patientViewers may list and register patients.
var patientViewers = []users.RoleType{users.RoleDoctor, users.RoleReceptionist, users.RoleAdmin}

// Fixture records served by the API routes. They exist so that the client
// has authenticated resources to fetch; they are not a data model.
type patient struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type service struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

type notice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type fixtures struct {
	mu       sync.RWMutex
	patients []patient
}

func newFixtures() *fixtures {
	return &fixtures{
		patients: []patient{
			{ID: "p-1", FirstName: "Paul", LastName: "Patient"},
			{ID: "p-2", FirstName: "Greta", LastName: "Garcia"},
		},
	}
}

var clinicServices = []service{
	{ID: "s-1", Name: "General consultation", Price: 40},
	{ID: "s-2", Name: "Blood test", Price: 25},
	{ID: "s-3", Name: "X-ray", Price: 90},
}

var clinicNotices = []notice{
	{ID: "n-1", Title: "Clinic closed on public holidays"},
	{ID: "n-2", Title: "Flu vaccinations available"},
}

// MeHandler returns the signed-in user
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(ContextKeyUserID).(string)
		user, err := s.repos.Users.GetByID(userID)
		if err != nil {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) PatientsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.fixtures.mu.RLock()
		defer s.fixtures.mu.RUnlock()
		writeJSON(w, http.StatusOK, s.fixtures.patients)
	}
}

func (s *Server) CreatePatientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p patient
		if !decodeJSON(w, r, &p) {
			return
		}
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			writeError(w, http.StatusUnprocessableEntity, "first and last name are required")
			return
		}
		p.ID = uuid.New().String()

		s.fixtures.mu.Lock()
		s.fixtures.patients = append(s.fixtures.patients, p)
		s.fixtures.mu.Unlock()

		writeJSON(w, http.StatusCreated, p)
	}
}

func (s *Server) ServicesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, clinicServices)
	}
}

func (s *Server) NoticesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, clinicNotices)
	}
}
