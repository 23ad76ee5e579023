package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/api"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/apierrors"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/client"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/models"
)

// fakeDashboard is an in-memory stand-in for the dashboard API.
type fakeDashboard struct {
	mu         sync.Mutex
	keywords   []models.Keyword
	areas      []models.ServiceArea
	services   []models.ServiceOffering
	rejectKey  map[string]bool
	listPages  int
	lastQuery  map[string]string
	jobs       map[string]*models.Job
	nextID     int
	businesses map[string]models.Business
}

func newFakeDashboard() *fakeDashboard {
	return &fakeDashboard{
		rejectKey:  map[string]bool{},
		jobs:       map[string]*models.Job{},
		businesses: map[string]models.Business{},
	}
}

func (f *fakeDashboard) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func paginate[T any](r *http.Request, items []T) ([]T, models.Pagination) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := min((page-1)*limit, len(items))
	end := min(start+limit, len(items))
	return items[start:end], models.Pagination{Page: page, Limit: limit, Total: len(items)}
}

func (f *fakeDashboard) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/businesses", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			f.lastQuery[k] = r.URL.Query().Get(k)
		}
		out := make([]models.Business, 0, len(f.businesses))
		for _, b := range f.businesses {
			out = append(out, b)
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("POST /api/businesses", func(w http.ResponseWriter, r *http.Request) {
		var in models.BusinessInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		b := models.Business{ID: f.id("b"), Name: in.Name, Industry: in.Industry, Languages: in.Languages}
		f.businesses[b.ID] = b
		writeJSON(w, http.StatusCreated, map[string]any{"business": b})
	})
	mux.HandleFunc("GET /api/businesses/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		b, ok := f.businesses[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "business not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"business": b})
	})
	mux.HandleFunc("PUT /api/businesses/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in models.BusinessInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		b := f.businesses[r.PathValue("id")]
		b.Name, b.Industry = in.Name, in.Industry
		f.businesses[b.ID] = b
		writeJSON(w, http.StatusOK, b)
	})
	mux.HandleFunc("DELETE /api/businesses/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.businesses, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/businesses/{id}/keywords", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listPages++
		page, p := paginate(r, f.keywords)
		writeJSON(w, http.StatusOK, map[string]any{"keywords": page, "pagination": p})
	})
	mux.HandleFunc("POST /api/businesses/{id}/keywords", func(w http.ResponseWriter, r *http.Request) {
		var in models.KeywordInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		k := models.Keyword{BusinessID: r.PathValue("id"), Keyword: in.Keyword, Slug: in.Slug, Language: in.Language}
		if f.rejectKey[k.Key()] {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "keyword rejected"})
			return
		}
		k.ID = f.id("k")
		f.keywords = append(f.keywords, k)
		writeJSON(w, http.StatusCreated, map[string]any{"keyword": k})
	})

	mux.HandleFunc("GET /api/businesses/{id}/service-areas", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.areas)
	})
	mux.HandleFunc("POST /api/businesses/{id}/service-areas", func(w http.ResponseWriter, r *http.Request) {
		var in models.ServiceAreaInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		a := models.ServiceArea{ID: f.id("a"), BusinessID: r.PathValue("id"), City: in.City, State: in.State, County: in.County, Slug: in.Slug}
		f.areas = append(f.areas, a)
		writeJSON(w, http.StatusCreated, a)
	})

	mux.HandleFunc("GET /api/businesses/{id}/services", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": f.services})
	})
	mux.HandleFunc("POST /api/businesses/{id}/services", func(w http.ResponseWriter, r *http.Request) {
		var in models.ServiceOfferingInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		s := models.ServiceOffering{ID: f.id("s"), BusinessID: r.PathValue("id"), Name: in.Name, NameES: in.NameES, Slug: in.Slug}
		f.services = append(f.services, s)
		writeJSON(w, http.StatusCreated, map[string]any{"service": s})
	})

	mux.HandleFunc("POST /api/businesses/{id}/jobs", func(w http.ResponseWriter, r *http.Request) {
		var in models.JobInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		j := &models.Job{ID: f.id("j"), BusinessID: r.PathValue("id"), PageType: in.PageType, Status: models.JobPending, TotalPages: 10}
		f.jobs[j.ID] = j
		writeJSON(w, http.StatusAccepted, map[string]any{"job": j})
	})
	mux.HandleFunc("GET /api/businesses/{id}/jobs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var out []models.Job
		for _, j := range f.jobs {
			if s := r.URL.Query().Get("status"); s == "" || string(j.Status) == s {
				out = append(out, *j)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
	})
	mux.HandleFunc("GET /api/jobs/{jid}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.jobs[r.PathValue("jid")])
	})
	mux.HandleFunc("POST /api/jobs/{jid}/cancel", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.jobs[r.PathValue("jid")].Status = models.JobCancelled
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func newTestAPI(t *testing.T, f *fakeDashboard) *api.API {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return api.New(client.New(srv.URL))
}

func TestListOptions_Values(t *testing.T) {
	t.Parallel()

	q := api.ListOptions{Search: "plumb", Language: "es", Page: 2, Limit: 50, Sort: "created_at", Order: "desc"}.Values()
	assert.Equal(t, "language=es&limit=50&order=desc&page=2&search=plumb&sort=created_at", q.Encode())
	assert.Empty(t, api.ListOptions{}.Values())
}

func TestBusinesses(t *testing.T) {
	t.Parallel()

	f := newFakeDashboard()
	a := newTestAPI(t, f)
	ctx := context.Background()

	created, err := a.CreateBusiness(ctx, models.BusinessInput{Name: "Acme Plumbing", Industry: "plumbing", Languages: []string{"en", "es"}})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := a.GetBusiness(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Plumbing", got.Name)
	assert.Equal(t, []string{"en", "es"}, got.Languages)

	raw, err := a.GetBusinessRaw(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "plumbing", raw["industry"])

	updated, err := a.UpdateBusiness(ctx, created.ID, models.BusinessInput{Name: "Acme", Industry: "hvac"})
	require.NoError(t, err)
	assert.Equal(t, "hvac", updated.Industry)

	list, page, err := a.ListBusinesses(ctx, api.ListOptions{Search: "acme", Page: 1})
	require.NoError(t, err)
	assert.Nil(t, page, "bare array carries no pagination")
	assert.Len(t, list, 1)
	f.mu.Lock()
	assert.Equal(t, map[string]string{"search": "acme", "page": "1"}, f.lastQuery)
	f.mu.Unlock()

	require.NoError(t, a.DeleteBusiness(ctx, created.ID))

	_, err = a.GetBusiness(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
	var httpErr *apierrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "business not found", httpErr.Message)
}

func TestJobs(t *testing.T) {
	t.Parallel()

	f := newFakeDashboard()
	a := newTestAPI(t, f)
	ctx := context.Background()

	job, err := a.CreateJob(ctx, "b1", models.JobInput{PageType: "service-area"})
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.Status)

	got, err := a.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	cancelled, err := a.CancelJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, cancelled)

	pending, _, err := a.ListJobs(ctx, "b1", api.ListOptions{Status: string(models.JobPending)})
	require.NoError(t, err)
	assert.Empty(t, pending)

	done, _, err := a.ListJobs(ctx, "b1", api.ListOptions{Status: string(models.JobCancelled)})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.True(t, done[0].Status.Terminal())
}

func TestListKeywords_Envelope(t *testing.T) {
	t.Parallel()

	f := newFakeDashboard()
	for i := range 30 {
		f.keywords = append(f.keywords, models.Keyword{ID: fmt.Sprint(i), Slug: fmt.Sprint("k", i), Language: "en"})
	}
	a := newTestAPI(t, f)

	items, page, err := a.ListKeywords(context.Background(), "b1", api.ListOptions{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, items, 10)
	require.NotNil(t, page)
	assert.Equal(t, models.Pagination{Page: 2, Limit: 20, Total: 30}, *page)
}
