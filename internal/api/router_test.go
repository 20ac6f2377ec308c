package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rohits-web03/estately/internal/api/handlers"
	"github.com/rohits-web03/estately/internal/api/middleware"
	"github.com/rohits-web03/estately/internal/classifier"
	"github.com/rohits-web03/estately/internal/repositories"
	"github.com/rohits-web03/estately/internal/services"
)

const cdn = "https://cdn.test"

type memObjects struct {
	mu      sync.Mutex
	objects map[string]string
}

func (m *memObjects) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if strings.Contains(string(data), "fail") {
		return "", errors.New("bucket unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(data)
	return m.PublicURL(key), nil
}

func (m *memObjects) DeleteByURL(_ context.Context, url string) error {
	key, _ := m.KeyFromURL(url)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) PublicURL(key string) string { return cdn + "/" + key }

func (m *memObjects) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, cdn+"/")
	return key, ok && key != ""
}

func (m *memObjects) GeneratePresignedPutURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

func (m *memObjects) VerifyObjectExists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memObjects) put(url, content string) {
	key, _ := m.KeyFromURL(url)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = content
}

func (m *memObjects) has(url string) bool {
	key, _ := m.KeyFromURL(url)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// contentClassifier rejects stored images whose content mentions "garden".
// Content "hangup" runs hangup, standing in for a client that disconnects
// mid-request. URLs not in storage are accepted.
type contentClassifier struct {
	objects *memObjects
	hangup  func()
}

func (c *contentClassifier) Classify(_ context.Context, url string) (classifier.Verdict, error) {
	key, _ := c.objects.KeyFromURL(url)
	c.objects.mu.Lock()
	content := c.objects.objects[key]
	c.objects.mu.Unlock()
	if strings.Contains(content, "hangup") && c.hangup != nil {
		c.hangup()
	}
	return classifier.Verdict{Accepted: !strings.Contains(content, "garden")}, nil
}

type purged struct {
	mu   sync.Mutex
	urls []string
}

func (p *purged) Purge(_ context.Context, _ string, urls []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, urls...)
}

func (p *purged) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.urls...)
}

const testMaxImage = 1 << 20

type testServer struct {
	handler    http.Handler
	store      *repositories.MemoryStore
	objects    *memObjects
	classifier *contentClassifier
	purger     *purged
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repositories.NewMemoryStore()
	objects := &memObjects{objects: map[string]string{}}
	cls := &contentClassifier{objects: objects}
	purger := &purged{}
	tokens := services.NewTokenManager("test-secret", time.Hour)
	images := services.NewImageService(objects, cls, purger, time.Second)
	cookies := handlers.Cookies{}

	h := SetupRouter(Deps{
		Tokens:         tokens,
		Auth:           handlers.NewAuthHandler(services.NewAuthService(store, tokens, nil), cookies, nil, handlers.NewStateSigner("test-secret", time.Minute), "http://client.test"),
		Listings:       handlers.NewListingHandler(services.NewListingService(store, objects, purger, nil)),
		Users:          handlers.NewUserHandler(services.NewUserService(store, store, objects, purger, nil), cookies),
		Images:         handlers.NewImageHandler(images, testMaxImage),
		ImageValidator: images,
	})
	return &testServer{handler: h, store: store, objects: objects, classifier: cls, purger: purger}
}

type response struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResp(t *testing.T, rec *httptest.ResponseRecorder, data any) response {
	t.Helper()
	var resp response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if data != nil {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("decode data: %v (%s)", err, resp.Data)
		}
	}
	return resp
}

func sessionCookie(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c.Value
		}
	}
	return ""
}

type userDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type listingDTO struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	RegularPrice  int64    `json:"regularPrice"`
	DiscountPrice *int64   `json:"discountPrice"`
	ImageURLs     []string `json:"imageUrls"`
	UserRef       string   `json:"userRef"`
}

func (s *testServer) signUpAndIn(t *testing.T, username, email string) (userDTO, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/sign-up", map[string]string{
		"username": username, "email": email, "password": "Secret123",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("sign-up status = %d: %s", rec.Code, rec.Body)
	}
	rec = s.do(t, http.MethodPost, "/api/auth/sign-in", map[string]string{"email": email, "password": "Secret123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in status = %d: %s", rec.Code, rec.Body)
	}
	cookie := sessionCookie(rec)
	var u userDTO
	decodeResp(t, rec, &u)
	if cookie == "" || u.ID == "" {
		t.Fatalf("sign-in returned cookie %q user %+v", cookie, u)
	}
	return u, cookie
}

func listingBody(owner, listingType string, price int64) map[string]any {
	return map[string]any{
		"title":        "Sunny two bedroom flat downtown",
		"description":  "Bright corner flat with two bedrooms, balcony, new kitchen and a short walk to transit.",
		"address":      "221 Market Street, Springfield",
		"type":         listingType,
		"parking":      true,
		"furnished":    false,
		"offer":        false,
		"bedrooms":     2,
		"bathrooms":    1,
		"regularPrice": price,
		"imageUrls":    []string{fmt.Sprintf("%s/listings/%s/1.jpg", cdn, owner)},
		"userRef":      "someone-else",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	u, cookie := s.signUpAndIn(t, "alice", "alice@example.com")

	rec := s.do(t, http.MethodPost, "/api/auth/sign-up", map[string]string{
		"username": "alice2", "email": "ALICE@example.com", "password": "Secret123",
	}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate sign-up status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/sign-in", map[string]string{"email": "alice@example.com", "password": "Wrong1234"}, "")
	if rec.Code != http.StatusUnauthorized || sessionCookie(rec) != "" {
		t.Fatalf("wrong password: status %d cookie %q", rec.Code, sessionCookie(rec))
	}

	rec = s.do(t, http.MethodPost, "/api/auth/sign-in", map[string]string{"email": "nobody@example.com", "password": "Secret123"}, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown email status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password leaked: %s", rec.Body)
	}
	var me userDTO
	decodeResp(t, rec, &me)
	if rec.Code != http.StatusOK || me.ID != u.ID {
		t.Fatalf("me = %d %+v", rec.Code, me)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/sign-out", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-out status = %d", rec.Code)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("sign-out cookies = %+v", cleared)
	}
}

func TestGoogleSignInCreatesAccount(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/auth/google-sign-in", map[string]string{
		"username": "Jane Doe", "email": "jane@example.com", "photoURL": "https://img.test/jane.png",
	}, "")
	if rec.Code != http.StatusOK || sessionCookie(rec) == "" {
		t.Fatalf("google sign-in = %d: %s", rec.Code, rec.Body)
	}
	var u userDTO
	decodeResp(t, rec, &u)
	if !strings.HasPrefix(u.Username, "janedoe") || len(u.Username) != len("janedoe")+5 {
		t.Fatalf("username = %q", u.Username)
	}
}

func TestGoogleOAuthDisabled(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodGet, "/api/auth/google/login", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListingLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner, ownerCookie := s.signUpAndIn(t, "owner1", "owner@example.com")
	_, otherCookie := s.signUpAndIn(t, "other1", "other@example.com")

	body := listingBody(owner.ID, "sale", 80000)

	if rec := s.do(t, http.MethodPost, "/api/listing/create", body, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no cookie status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/listing/create", body, "garbage"); rec.Code != http.StatusForbidden {
		t.Fatalf("bad cookie status = %d", rec.Code)
	}

	bad := listingBody(owner.ID, "sale", 80000)
	bad["offer"] = true
	bad["discountPrice"] = 90000
	if rec := s.do(t, http.MethodPost, "/api/listing/create", bad, ownerCookie); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid discount status = %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/api/listing/create", body, ownerCookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created listingDTO
	decodeResp(t, rec, &created)
	if created.UserRef != owner.ID {
		t.Fatalf("userRef = %q, want %q", created.UserRef, owner.ID)
	}

	rec = s.do(t, http.MethodGet, "/api/listing/get/"+created.ID, nil, "")
	var fetched listingDTO
	decodeResp(t, rec, &fetched)
	if rec.Code != http.StatusOK || fetched.Title != body["title"] || fetched.RegularPrice != 80000 || fetched.DiscountPrice != nil {
		t.Fatalf("get = %d %+v", rec.Code, fetched)
	}

	update := listingBody(owner.ID, "rent", 1200)
	if rec := s.do(t, http.MethodPatch, "/api/listing/update/"+created.ID, update, otherCookie); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign update status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/api/listing/delete/"+created.ID, nil, otherCookie); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign delete status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPatch, "/api/listing/update/"+created.ID, update, ownerCookie)
	var updated listingDTO
	decodeResp(t, rec, &updated)
	if rec.Code != http.StatusOK || updated.Type != "rent" || updated.UserRef != owner.ID {
		t.Fatalf("update = %d %+v", rec.Code, updated)
	}

	rec = s.do(t, http.MethodDelete, "/api/listing/delete/"+created.ID, nil, ownerCookie)
	var remaining []listingDTO
	decodeResp(t, rec, &remaining)
	if rec.Code != http.StatusOK || len(remaining) != 0 {
		t.Fatalf("delete = %d %+v", rec.Code, remaining)
	}
	if rec := s.do(t, http.MethodGet, "/api/listing/get/"+created.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
	if got := s.purger.all(); len(got) != 1 {
		t.Fatalf("purged = %v", got)
	}
}

func TestSearchPagination(t *testing.T) {
	s := newTestServer(t)
	owner, cookie := s.signUpAndIn(t, "landlord", "landlord@example.com")
	for i := range 5 {
		if rec := s.do(t, http.MethodPost, "/api/listing/create", listingBody(owner.ID, "rent", int64(1000+i)), cookie); rec.Code != http.StatusCreated {
			t.Fatalf("create rent %d: %d %s", i, rec.Code, rec.Body)
		}
	}
	if rec := s.do(t, http.MethodPost, "/api/listing/create", listingBody(owner.ID, "sale", 90000), cookie); rec.Code != http.StatusCreated {
		t.Fatalf("create sale: %d", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/api/listing/search?type=rent&limit=2&startIndex=0", nil, "")
	var result struct {
		Listings               []listingDTO `json:"listings"`
		NumOfRemainingListings int64        `json:"numOfRemainingListings"`
	}
	decodeResp(t, rec, &result)
	if rec.Code != http.StatusOK || len(result.Listings) != 2 || result.NumOfRemainingListings != 3 {
		t.Fatalf("search = %d, %d listings, %d remaining", rec.Code, len(result.Listings), result.NumOfRemainingListings)
	}
	for _, l := range result.Listings {
		if l.Type != "rent" {
			t.Fatalf("type filter leaked %q", l.Type)
		}
	}

	rec = s.do(t, http.MethodGet, "/api/listing/search?type=all&sort=regularPrice&order=asc", nil, "")
	decodeResp(t, rec, &result)
	if len(result.Listings) != 6 || result.Listings[0].RegularPrice != 1000 {
		t.Fatalf("all search = %+v", result)
	}

	if rec := s.do(t, http.MethodGet, "/api/listing/search?limit=0", nil, ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("limit=0 status = %d", rec.Code)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	s := newTestServer(t)
	owner, cookie := s.signUpAndIn(t, "leaving", "leaving@example.com")
	_, otherCookie := s.signUpAndIn(t, "staying", "staying@example.com")

	rec := s.do(t, http.MethodPost, "/api/listing/create", listingBody(owner.ID, "sale", 100000), cookie)
	var created listingDTO
	decodeResp(t, rec, &created)

	if rec := s.do(t, http.MethodDelete, "/api/user/delete/"+owner.ID, nil, otherCookie); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign account delete status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/user/listings/"+owner.ID, nil, otherCookie); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign listings status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/user/"+owner.ID, nil, otherCookie); rec.Code != http.StatusOK {
		t.Fatalf("public profile status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodDelete, "/api/user/delete/"+owner.ID, nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete account status = %d: %s", rec.Code, rec.Body)
	}
	var out struct {
		ImageURLsToDelete []string `json:"imageUrlsToDelete"`
		Message           string   `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Message != "Account deleted successfully!" || len(out.ImageURLsToDelete) != 1 {
		t.Fatalf("delete account body = %+v", out)
	}
	if rec := s.do(t, http.MethodGet, "/api/listing/get/"+created.ID, nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("listing survived account delete: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/user/"+owner.ID, nil, otherCookie); rec.Code != http.StatusNotFound {
		t.Fatalf("user survived delete: %d", rec.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	u, cookie := s.signUpAndIn(t, "changer", "changer@example.com")

	if rec := s.do(t, http.MethodPatch, "/api/user/update/"+u.ID, map[string]any{}, cookie); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty update status = %d", rec.Code)
	}

	rec := s.do(t, http.MethodPatch, "/api/user/update/"+u.ID, map[string]string{
		"username": "renamed", "password": "Newpass123", "passwordConfirmation": "Newpass123",
	}, cookie)
	var updated userDTO
	decodeResp(t, rec, &updated)
	if rec.Code != http.StatusOK || updated.Username != "renamed" {
		t.Fatalf("update = %d %+v", rec.Code, updated)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/sign-in", map[string]string{"email": "changer@example.com", "password": "Newpass123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in with new password = %d", rec.Code)
	}
}

func TestNonOwnerRefusedBeforeValidation(t *testing.T) {
	s := newTestServer(t)
	owner, ownerCookie := s.signUpAndIn(t, "owner2", "owner2@example.com")
	other, otherCookie := s.signUpAndIn(t, "other2", "other2@example.com")

	rec := s.do(t, http.MethodPost, "/api/listing/create", listingBody(owner.ID, "sale", 80000), ownerCookie)
	var created listingDTO
	decodeResp(t, rec, &created)

	invalid := listingBody(owner.ID, "sale", 80000)
	invalid["title"] = "short"
	rec = s.do(t, http.MethodPatch, "/api/listing/update/"+created.ID, invalid, otherCookie)
	if rec.Code != http.StatusUnauthorized || strings.Contains(rec.Body.String(), "errors") {
		t.Fatalf("non-owner invalid update = %d: %s", rec.Code, rec.Body)
	}
	if rec := s.do(t, http.MethodPatch, "/api/listing/update/missing", invalid, ownerCookie); rec.Code != http.StatusNotFound {
		t.Fatalf("missing listing update = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPatch, "/api/listing/update/"+created.ID, invalid, ownerCookie); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("owner invalid update = %d", rec.Code)
	}

	rec = s.do(t, http.MethodPatch, "/api/user/update/"+owner.ID, map[string]any{}, otherCookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign profile update = %d: %s", rec.Code, rec.Body)
	}
	if rec := s.do(t, http.MethodPatch, "/api/user/update/"+other.ID, map[string]any{}, otherCookie); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("own empty profile update = %d", rec.Code)
	}
}

func TestListingCannotAdoptForeignImages(t *testing.T) {
	s := newTestServer(t)
	victim, _ := s.signUpAndIn(t, "victim", "victim@example.com")
	_, attackerCookie := s.signUpAndIn(t, "attacker", "attacker@example.com")

	rec := s.do(t, http.MethodPost, "/api/listing/create", listingBody(victim.ID, "sale", 80000), attackerCookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("create with victim's image = %d: %s", rec.Code, rec.Body)
	}
}

type formPart struct {
	field, filename, content string
}

func (s *testServer) upload(t *testing.T, ctx context.Context, cookie string, parts ...formPart) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			if err := mw.WriteField(p.field, p.content); err != nil {
				t.Fatal(err)
			}
			continue
		}
		fw, err := mw.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, p.content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/api/images/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: cookie})
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type uploadDTO struct {
	ImageURLs     []string `json:"imageUrls"`
	FailedUploads int      `json:"failedUploads"`
	Rejected      []string `json:"rejected"`
	Warnings      []string `json:"warnings"`
}

func TestImageUpload(t *testing.T) {
	s := newTestServer(t)
	u, cookie := s.signUpAndIn(t, "uploader", "uploader@example.com")
	existing := fmt.Sprintf("%s/listings/%s/old.jpg", cdn, u.ID)
	s.objects.put(existing, "old house")
	ctx := context.Background()

	t.Run("partial failures are warnings", func(t *testing.T) {
		rec := s.upload(t, ctx, cookie,
			formPart{"existing", "", existing},
			formPart{"images", "front.jpg", "house front"},
			formPart{"images", "yard.jpg", "garden only"},
			formPart{"images", "broken.jpg", "fail"},
		)
		var out uploadDTO
		decodeResp(t, rec, &out)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(out.ImageURLs) != 2 || out.ImageURLs[0] != existing || out.FailedUploads != 1 || len(out.Rejected) != 1 || len(out.Warnings) != 2 {
			t.Fatalf("upload = %+v", out)
		}
		if !strings.HasPrefix(out.ImageURLs[1], fmt.Sprintf("%s/listings/%s/", cdn, u.ID)) {
			t.Fatalf("uploaded outside owner prefix: %s", out.ImageURLs[1])
		}
		if got := s.purger.all(); len(got) != 1 || got[0] != out.Rejected[0] {
			t.Fatalf("purged = %v", got)
		}
	})

	t.Run("file over the size cap", func(t *testing.T) {
		rec := s.upload(t, ctx, cookie, formPart{"images", "huge.jpg", strings.Repeat("h", testMaxImage+1)})
		resp := decodeResp(t, rec, nil)
		if rec.Code != http.StatusBadRequest || resp.Message != "Each image must be less than 1 MB!" {
			t.Fatalf("oversize = %d %q", rec.Code, resp.Message)
		}
	})

	t.Run("nothing to do", func(t *testing.T) {
		if rec := s.upload(t, ctx, cookie, formPart{"existing", "", existing}); rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("remove only", func(t *testing.T) {
		keep := fmt.Sprintf("%s/listings/%s/keep.jpg", cdn, u.ID)
		s.objects.put(keep, "house")
		rec := s.upload(t, ctx, cookie,
			formPart{"existing", "", existing},
			formPart{"existing", "", keep},
			formPart{"remove", "", existing},
		)
		var out uploadDTO
		decodeResp(t, rec, &out)
		if rec.Code != http.StatusOK || len(out.ImageURLs) != 1 || out.ImageURLs[0] != keep || len(out.Warnings) != 0 {
			t.Fatalf("remove only = %d %+v", rec.Code, out)
		}
		if s.objects.has(existing) || !s.objects.has(keep) {
			t.Fatal("remove deleted the wrong objects")
		}
	})
}

func TestImageUploadCancelledMidway(t *testing.T) {
	s := newTestServer(t)
	_, cookie := s.signUpAndIn(t, "quitter", "quitter@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.classifier.hangup = cancel

	rec := s.upload(t, ctx, cookie, formPart{"images", "front.jpg", "house hangup"})
	if rec.Body.Len() != 0 {
		t.Fatalf("cancelled upload answered %d: %s", rec.Code, rec.Body)
	}
	got := s.purger.all()
	if len(got) != 1 || !strings.Contains(got[0], "/listings/") {
		t.Fatalf("abandoned uploads purged = %v", got)
	}
}

func TestImageDeleteOwnPrefixOnly(t *testing.T) {
	s := newTestServer(t)
	owner, ownerCookie := s.signUpAndIn(t, "keeper", "keeper@example.com")
	_, otherCookie := s.signUpAndIn(t, "intruder", "intruder@example.com")
	img := fmt.Sprintf("%s/listings/%s/1.jpg", cdn, owner.ID)
	s.objects.put(img, "house")

	target := "/api/images?url=" + url.QueryEscape(img)
	if rec := s.do(t, http.MethodDelete, target, nil, otherCookie); rec.Code != http.StatusUnauthorized {
		t.Fatalf("foreign delete = %d", rec.Code)
	}
	if !s.objects.has(img) {
		t.Fatal("foreign delete removed the object")
	}
	if rec := s.do(t, http.MethodDelete, target, nil, ownerCookie); rec.Code != http.StatusOK {
		t.Fatalf("own delete = %d: %s", rec.Code, rec.Body)
	}
	if s.objects.has(img) {
		t.Fatal("object survived delete")
	}
}

func TestImageDiscardIgnoresForeignURLs(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signUpAndIn(t, "first", "first@example.com")
	me, cookie := s.signUpAndIn(t, "second", "second@example.com")
	mine := fmt.Sprintf("%s/listings/%s/a.jpg", cdn, me.ID)
	theirs := fmt.Sprintf("%s/listings/%s/b.jpg", cdn, owner.ID)

	rec := s.do(t, http.MethodPost, "/api/images/discard", map[string][]string{"imageUrls": {mine, theirs}}, cookie)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("discard = %d: %s", rec.Code, rec.Body)
	}
	if got := s.purger.all(); len(got) != 1 || got[0] != mine {
		t.Fatalf("purged = %v", got)
	}
}
