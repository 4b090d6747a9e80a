package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/vsinha/requisition/pkg/domain/entities"
)

// Route names used by FakeServer for failure injection and hit counting
const (
	RouteLogin          = "auth.login"
	RouteProfile        = "auth.profile"
	RouteLogout         = "auth.logout"
	RouteStockLevels    = "stock.list"
	RouteListRequests   = "requests.list"
	RouteCreateRequest  = "requests.create"
	RouteGetRequest     = "requests.get"
	RouteSubmitRequest  = "requests.submit"
	RouteReceiveRequest = "requests.receive"
)

type injectedFailure struct {
	status int
	body   string
}

// FakeServer is an in-process inventory backend speaking the REST contract.
// It issues SampleToken to SampleRequester and owns request status the way
// the real backend does: drafts can be submitted, completed requests can be
// received, and everything in between is driven by Advance.
type FakeServer struct {
	server *httptest.Server

	mu       sync.Mutex
	users    map[string]entities.UserProfile
	tokens   map[string]entities.UserProfile
	stock    []entities.StockLevel
	requests map[entities.RequestID]*entities.RequestRecord
	order    []entities.RequestID
	nextID   entities.RequestID
	failures map[string][]injectedFailure
	hits     map[string]int
	now      func() time.Time
}

// NewFakeServer starts a fake backend seeded with the stationery catalog and
// the sample requester. Close it when done.
func NewFakeServer() *FakeServer {
	requester := SampleRequester()
	f := &FakeServer{
		users:    map[string]entities.UserProfile{requester.Email: requester},
		tokens:   make(map[string]entities.UserProfile),
		stock:    BuildStationeryCatalog(),
		requests: make(map[entities.RequestID]*entities.RequestRecord),
		nextID:   100,
		failures: make(map[string][]injectedFailure),
		hits:     make(map[string]int),
		now:      func() time.Time { return time.Date(2025, 2, 3, 9, 30, 0, 0, time.UTC) },
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(f.inject, f.authenticate)
	api.HandleFunc("/auth/login/", f.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	api.HandleFunc("/auth/profile/", f.handleProfile).Methods(http.MethodGet).Name(RouteProfile)
	api.HandleFunc("/auth/logout/", f.handleLogout).Methods(http.MethodPost).Name(RouteLogout)
	api.HandleFunc("/stock-levels/", f.handleStock).Methods(http.MethodGet).Name(RouteStockLevels)
	api.HandleFunc("/requests/", f.handleListRequests).Methods(http.MethodGet).Name(RouteListRequests)
	api.HandleFunc("/requests/", f.handleCreateRequest).Methods(http.MethodPost).Name(RouteCreateRequest)
	api.HandleFunc("/requests/{id:[0-9]+}/", f.handleGetRequest).Methods(http.MethodGet).Name(RouteGetRequest)
	api.HandleFunc("/requests/{id:[0-9]+}/submit/", f.handleSubmit).Methods(http.MethodPost).Name(RouteSubmitRequest)
	api.HandleFunc("/requests/{id:[0-9]+}/receive/", f.handleReceive).Methods(http.MethodPost).Name(RouteReceiveRequest)

	f.server = httptest.NewServer(router)
	return f
}

// URL returns the API base URL, with trailing slash
func (f *FakeServer) URL() string {
	return f.server.URL + "/api/"
}

// Close shuts the server down
func (f *FakeServer) Close() {
	f.server.Close()
}

// IssueToken makes token valid for the sample requester without a login
func (f *FakeServer) IssueToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = SampleRequester()
}

// RevokeTokens invalidates every issued token
func (f *FakeServer) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]entities.UserProfile)
}

// FailNext makes the next call to route answer status with body
func (f *FakeServer) FailNext(route string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = append(f.failures[route], injectedFailure{status: status, body: body})
}

// Hits returns how many requests reached route, injected failures included
func (f *FakeServer) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// Seed stores a copy of record as if it had been created earlier
func (f *FakeServer) Seed(record entities.RequestRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := record
	if _, ok := f.requests[record.ID]; !ok {
		f.order = append(f.order, record.ID)
	}
	f.requests[record.ID] = &copied
	if record.ID >= f.nextID {
		f.nextID = record.ID + 1
	}
}

// Advance moves a request to status as a reviewer would, appending any
// approvals. It returns false when the request does not exist.
func (f *FakeServer) Advance(id entities.RequestID, status entities.RequestStatus, approvals ...entities.Approval) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.requests[id]
	if !ok {
		return false
	}
	record.Status = status
	record.StatusDisplay = string(status)
	record.Approvals = append(record.Approvals, approvals...)
	if status == entities.StatusCompleted {
		for i := range record.Items {
			record.Items[i].QuantityIssued = record.Items[i].QuantityRequested
		}
	}
	return true
}

// Request returns a copy of the stored request
func (f *FakeServer) Request(id entities.RequestID) (entities.RequestRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.requests[id]
	if !ok {
		return entities.RequestRecord{}, false
	}
	return *record, true
}

func (f *FakeServer) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := routeName(r)

		f.mu.Lock()
		f.hits[name]++
		var failure *injectedFailure
		if queued := f.failures[name]; len(queued) > 0 {
			failure = &queued[0]
			f.failures[name] = queued[1:]
		}
		f.mu.Unlock()

		if failure != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(failure.status)
			_, _ = w.Write([]byte(failure.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if routeName(r) == RouteLogin {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Token ")
		f.mu.Lock()
		_, ok := f.tokens[token]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}

	f.mu.Lock()
	user, ok := f.users[input.Email]
	if ok && input.Password == SamplePassword {
		f.tokens[SampleToken] = user
	}
	f.mu.Unlock()

	if !ok || input.Password != SamplePassword {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"non_field_errors": []string{"Unable to log in with provided credentials."},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": SampleToken, "user": user})
}

func (f *FakeServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, f.caller(r))
}

func (f *FakeServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Token ")
	f.mu.Lock()
	delete(f.tokens, token)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (f *FakeServer) handleStock(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	levels := append([]entities.StockLevel{}, f.stock...)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(levels), "results": levels})
}

func (f *FakeServer) handleListRequests(w http.ResponseWriter, r *http.Request) {
	caller := f.caller(r)

	f.mu.Lock()
	results := make([]map[string]interface{}, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		record := f.requests[f.order[i]]
		if record.Requester != nil && record.Requester.ID != caller.ID {
			continue
		}
		results = append(results, wireRecord(record))
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(results), "results": results})
}

func (f *FakeServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Items []entities.DraftItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}
	if len(input.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"items": {"At least one item is required."}})
		return
	}

	caller := f.caller(r)
	f.mu.Lock()
	defer f.mu.Unlock()

	record := &entities.RequestRecord{
		ID:            f.nextID,
		Requester:     &entities.BasicUser{ID: caller.ID, Email: caller.Email, FirstName: caller.FirstName, LastName: caller.LastName, DepartmentCode: caller.DepartmentCode},
		Status:        entities.StatusDraft,
		StatusDisplay: "Draft",
		CreatedAt:     f.now(),
		Items:         make([]entities.RequestItem, 0, len(input.Items)),
	}
	for i, item := range input.Items {
		variant, ok := f.variant(item.VariantID)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"items": {fmt.Sprintf("Unknown variant %d.", item.VariantID)}})
			return
		}
		if item.QuantityRequested <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"items": {"Quantity must be positive."}})
			return
		}
		record.Items = append(record.Items, entities.RequestItem{
			ID:                int64(i + 1),
			Variant:           variant,
			QuantityRequested: item.QuantityRequested,
		})
	}

	f.requests[record.ID] = record
	f.order = append(f.order, record.ID)
	f.nextID++
	writeJSON(w, http.StatusCreated, wireRecord(record))
}

func (f *FakeServer) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, wireRecord(record))
}

func (f *FakeServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if record.Status != entities.StatusDraft {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("Request cannot be submitted from status %s.", record.Status),
		})
		return
	}

	department := "UMUM"
	if record.Requester != nil && record.Requester.DepartmentCode != "" {
		department = record.Requester.DepartmentCode
	}
	submitted := f.now().Add(time.Minute)
	number := fmt.Sprintf("REQ/%s/%d/%04d", department, submitted.Year(), record.ID)
	record.Status = entities.StatusSubmitted
	record.StatusDisplay = "Submitted"
	record.SubmittedAt = &submitted
	record.RequestNumber = &number
	writeJSON(w, http.StatusOK, wireRecord(record))
}

func (f *FakeServer) handleReceive(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.lookup(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if record.Status != entities.StatusCompleted {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("Request cannot be received from status %s.", record.Status),
		})
		return
	}

	received := f.now().Add(24 * time.Hour)
	record.Status = entities.StatusReceived
	record.StatusDisplay = "Received"
	record.ReceivedAt = &received
	writeJSON(w, http.StatusOK, map[string]string{"message": "Request marked as received."})
}

func (f *FakeServer) caller(r *http.Request) entities.UserProfile {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Token ")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[token]
}

// lookup must be called with f.mu held
func (f *FakeServer) lookup(r *http.Request) (*entities.RequestRecord, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return nil, false
	}
	record, ok := f.requests[entities.RequestID(id)]
	return record, ok
}

// variant must be called with f.mu held
func (f *FakeServer) variant(id entities.VariantID) (entities.Variant, bool) {
	for _, level := range f.stock {
		if level.Variant.ID == id {
			return level.Variant, true
		}
	}
	return entities.Variant{}, false
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}

// wireRecord renders a record with the backend's flattened approval fields
func wireRecord(record *entities.RequestRecord) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, map[string]interface{}{
			"id":                     item.ID,
			"variant":                item.Variant,
			"quantity_requested":     item.QuantityRequested,
			"quantity_approved_spv2": item.QuantityApproved,
			"quantity_issued":        item.QuantityIssued,
		})
	}

	out := map[string]interface{}{
		"id":             record.ID,
		"request_number": record.RequestNumber,
		"requester":      record.Requester,
		"status":         record.Status,
		"status_display": record.StatusDisplay,
		"created_at":     record.CreatedAt,
		"submitted_at":   record.SubmittedAt,
		"received_at":    record.ReceivedAt,
		"spmb_number":    nil,
		"items":          items,
	}
	if record.SPMBNumber != "" {
		out["spmb_number"] = record.SPMBNumber
	}

	prefixes := map[entities.ApprovalStage][3]string{
		entities.StageRequesterSuperior: {"supervisor1_approver", "supervisor1_decision_at", "supervisor1_rejection_reason"},
		entities.StageOperatorSuperior:  {"supervisor2_approver", "supervisor2_decision_at", "supervisor2_rejection_reason"},
		entities.StageOperator:          {"operator_processor", "operator_processed_at", "operator_rejection_reason"},
	}
	for _, approval := range record.Approvals {
		keys, ok := prefixes[approval.Stage]
		if !ok {
			continue
		}
		out[keys[0]] = approval.Approver
		out[keys[1]] = approval.DecidedAt
		if approval.RejectionReason != "" {
			out[keys[2]] = approval.RejectionReason
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
