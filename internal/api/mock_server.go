package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
)

// MockOTP is the only code the mock auth service accepts.
const MockOTP = "123456"

// ReceivedFile is an attachment captured by the mock.
type ReceivedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReceivedIssue is a create request captured by the mock.
type ReceivedIssue struct {
	Fields        map[string]string
	Image         *ReceivedFile
	Audio         *ReceivedFile
	Authorization string
	RequestID     string
}

type mockUser struct {
	ID           int    `json:"id"`
	MobileNumber string `json:"mobile_number"`
	CivicID      string `json:"civic_id"`
	FullName     string `json:"full_name"`
}

type cannedResponse struct {
	status int
	body   string
}

// MockServer provides a fake remote issue and auth service for testing.
type MockServer struct {
	*httptest.Server

	mu       sync.Mutex
	issues   map[int]issue.Remote
	vouchers map[int]map[string]bool
	otps     map[string]string
	users    map[string]*mockUser
	received []ReceivedIssue
	next     *cannedResponse
	secret   []byte

	requests atomic.Int64
}

// NewMockServer creates a mock remote service.
func NewMockServer() *MockServer {
	m := &MockServer{
		issues:   make(map[int]issue.Remote),
		vouchers: make(map[int]map[string]bool),
		otps:     make(map[string]string),
		users:    make(map[string]*mockUser),
		secret:   []byte("mock-signing-secret"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues", m.handleListIssues)
	mux.HandleFunc("POST /api/issues", m.handleCreateIssue)
	mux.HandleFunc("POST /api/issues/{id}/vouch", m.handleVouch)
	mux.HandleFunc("GET /api/test", m.handleTest)
	mux.HandleFunc("POST /auth/send-otp", m.handleSendOTP)
	mux.HandleFunc("POST /auth/verify-otp", m.handleVerifyOTP)
	mux.HandleFunc("GET /auth/profile", m.handleProfile)

	m.Server = httptest.NewServer(m.intercept(mux))
	return m
}

// intercept counts requests and serves a queued canned response.
func (m *MockServer) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)

		m.mu.Lock()
		canned := m.next
		m.next = nil
		m.mu.Unlock()

		if canned != nil {
			w.WriteHeader(canned.status)
			io.WriteString(w, canned.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Endpoints returns an endpoint set for every environment pointing at the
// mock.
func (m *MockServer) Endpoints() config.Endpoints {
	set := config.EndpointSet{
		IssuesAPI:    m.URL + "/api/issues",
		AuthBase:     m.URL,
		SendOTP:      m.URL + "/auth/send-otp",
		VerifyOTP:    m.URL + "/auth/verify-otp",
		FirebaseAuth: m.URL + "/auth/firebase",
		Profile:      m.URL + "/auth/profile",
	}
	return config.Endpoints{Production: set, Development: set, LocalNetwork: set}
}

// Resolver returns a resolver over Endpoints.
func (m *MockServer) Resolver() *config.Resolver {
	return config.NewResolver(m.Endpoints(), config.WithBuildEnv(string(config.Development)))
}

// RequestCount returns the number of requests received.
func (m *MockServer) RequestCount() int {
	return int(m.requests.Load())
}

// SetNextResponse makes the next request, whatever its path, answer with
// status and body.
func (m *MockServer) SetNextResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = &cannedResponse{status: status, body: body}
}

// AddIssue stores a remote issue.
func (m *MockServer) AddIssue(remote issue.Remote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[remote.ID] = remote
}

// GetIssue returns a stored issue (for test assertions).
func (m *MockServer) GetIssue(id int) (issue.Remote, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	remote, ok := m.issues[id]
	return remote, ok
}

// Received returns the create requests captured so far.
func (m *MockServer) Received() []ReceivedIssue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ReceivedIssue(nil), m.received...)
}

// Reset clears all state.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = make(map[int]issue.Remote)
	m.vouchers = make(map[int]map[string]bool)
	m.otps = make(map[string]string)
	m.users = make(map[string]*mockUser)
	m.received = nil
	m.next = nil
	m.requests.Store(0)
}

// MintToken signs a bearer token for the given mobile number.
func (m *MockServer) MintToken(mobileNumber string) string {
	claims := jwt.MapClaims{
		"user_id":       mobileNumber,
		"mobile_number": mobileNumber,
		"exp":           time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		panic(fmt.Sprintf("mock: sign token: %v", err))
	}
	return signed
}

// authenticate returns the user id carried by a valid bearer token.
func (m *MockServer) authenticate(r *http.Request) (string, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" || raw == r.Header.Get("Authorization") {
		return "", false
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	userID, ok := claims["user_id"].(string)
	return userID, ok && userID != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (m *MockServer) handleListIssues(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	issues := make([]issue.Remote, 0, len(m.issues))
	for _, remote := range m.issues {
		issues = append(issues, remote)
	}
	m.mu.Unlock()

	sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{
		"issues": issues,
		"source": "memory",
		"count":  len(issues),
	})
}

func (m *MockServer) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Expected multipart form data")
		return
	}

	received := ReceivedIssue{
		Fields:        make(map[string]string),
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
	}
	for name, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			received.Fields[name] = values[0]
		}
	}
	received.Image = readFormFile(r, "image")
	received.Audio = readFormFile(r, "audio")

	title := strings.TrimSpace(received.Fields["title"])
	description := strings.TrimSpace(received.Fields["description"])

	m.mu.Lock()
	m.received = append(m.received, received)
	if title == "" || description == "" {
		m.mu.Unlock()
		writeJSONError(w, http.StatusBadRequest, "Title and description are required")
		return
	}

	latitude, _ := strconv.ParseFloat(received.Fields["latitude"], 64)
	longitude, _ := strconv.ParseFloat(received.Fields["longitude"], 64)
	zero := 0
	remote := issue.Remote{
		ID:          len(m.issues) + 1,
		Title:       title,
		Description: description,
		Latitude:    latitude,
		Longitude:   longitude,
		Category:    received.Fields["category"],
		Priority:    received.Fields["priority"],
		Status:      "open",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		VouchCount:  &zero,
	}
	if received.Image != nil {
		remote.ImageFilename = &received.Image.Filename
	}
	if received.Audio != nil {
		remote.AudioFilename = &received.Audio.Filename
	}
	if mode := received.Fields["description_mode"]; mode != "" {
		remote.DescriptionMode = &mode
	}
	m.issues[remote.ID] = remote
	m.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Issue created successfully",
		"issue":   remote,
	})
}

func readFormFile(r *http.Request, field string) *ReceivedFile {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil
	}
	return &ReceivedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
}

func (m *MockServer) handleVouch(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.authenticate(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "Authorization token required")
		return
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid issue id")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	remote, ok := m.issues[id]
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Issue not found")
		return
	}
	if m.vouchers[id] == nil {
		m.vouchers[id] = make(map[string]bool)
	}
	if m.vouchers[id][userID] {
		writeJSONError(w, http.StatusConflict, "You have already vouched for this issue")
		return
	}
	m.vouchers[id][userID] = true

	count := len(m.vouchers[id])
	remote.VouchCount = &count
	priority := count
	remote.VouchPriority = &priority
	m.issues[id] = remote

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Vouch added successfully",
		"issue_id":     id,
		"vouch_count":  count,
		"user_vouched": true,
		"source":       "memory",
	})
}

func (m *MockServer) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Server is working!",
		"status":  "ok",
	})
}

type otpPayload struct {
	MobileNumber string `json:"mobile_number"`
	OTP          string `json:"otp"`
	Type         string `json:"type"`
}

func validMobile(number string) bool {
	if len(number) != 10 {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (m *MockServer) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var payload otpPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if !validMobile(payload.MobileNumber) {
		writeJSONError(w, http.StatusBadRequest, "Invalid mobile number")
		return
	}

	m.mu.Lock()
	m.otps[payload.MobileNumber] = MockOTP
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "OTP sent successfully",
		"mobile_number": payload.MobileNumber,
	})
}

func (m *MockServer) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var payload otpPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if payload.MobileNumber == "" || payload.OTP == "" {
		writeJSONError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	m.mu.Lock()
	expected, sent := m.otps[payload.MobileNumber]
	if !sent || expected != payload.OTP {
		m.mu.Unlock()
		writeJSONError(w, http.StatusBadRequest, "Invalid OTP")
		return
	}
	delete(m.otps, payload.MobileNumber)

	user, ok := m.users[payload.MobileNumber]
	if !ok {
		id := len(m.users) + 1
		user = &mockUser{
			ID:           id,
			MobileNumber: payload.MobileNumber,
			CivicID:      fmt.Sprintf("CIV%09d", id),
		}
		m.users[payload.MobileNumber] = user
	}
	snapshot := *user
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "OTP verified successfully",
		"token":   m.MintToken(payload.MobileNumber),
		"user":    snapshot,
	})
}

func (m *MockServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := m.authenticate(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "Invalid or missing token")
		return
	}

	m.mu.Lock()
	user, ok := m.users[userID]
	var snapshot mockUser
	if ok {
		snapshot = *user
	}
	m.mu.Unlock()

	if !ok {
		writeJSONError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": snapshot})
}
