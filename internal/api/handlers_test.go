package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/api"
	"github.com/yaroing/feedback-platform/internal/database"
	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/registry"
	"github.com/yaroing/feedback-platform/internal/telemetry"
	"github.com/yaroing/feedback-platform/internal/testhelpers"
)

type fakeClassifier struct {
	rulesSeen int
}

func (f *fakeClassifier) ClassifyWithRules(_ context.Context, text string, rules []domain.KeywordRule) domain.ClassificationResult {
	f.rulesSeen = len(rules)
	if strings.TrimSpace(text) == "" {
		return domain.ClassificationResult{Priority: domain.PriorityMedium, Strategy: domain.StrategyNone}
	}
	category := "Eau"
	return domain.ClassificationResult{
		Category:   &category,
		Confidence: 0.8,
		Priority:   domain.PriorityHigh,
		Strategy:   domain.StrategyKeyword,
	}
}

type fakeRules struct {
	rules []domain.KeywordRule
}

func (f *fakeRules) List(context.Context) ([]domain.KeywordRule, error) {
	return f.rules, nil
}

func (f *fakeRules) Create(_ context.Context, rule *domain.KeywordRule) error {
	rule.ID = int64(len(f.rules) + 1)
	f.rules = append(f.rules, *rule)
	return nil
}

type fakeCategories map[string]domain.Category

func (f fakeCategories) FindByName(_ context.Context, name string) (*domain.Category, error) {
	c, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", name, database.ErrNotFound)
	}
	return &c, nil
}

type fakeExamples []domain.TrainingExample

func (f fakeExamples) ListValidated(context.Context) ([]domain.TrainingExample, error) {
	return f, nil
}

type fakeProcessor struct {
	written int
	err     error
}

func (f *fakeProcessor) ProcessPending(context.Context) (int, error) {
	return f.written, f.err
}

func (f *fakeProcessor) Stats() map[string]any {
	return map[string]any{"running": true, "batch_size": 100}
}

type fakeLogs map[int64][]domain.FeedbackLog

func (f fakeLogs) ListLogs(_ context.Context, feedbackID int64) ([]domain.FeedbackLog, error) {
	return f[feedbackID], nil
}

var testLogs = fakeLogs{
	5: {{ID: 1, FeedbackID: 5, Action: domain.FeedbackLogActionCategorized, Details: "Eau"}},
}

type testEnv struct {
	router     *gin.Engine
	models     *testhelpers.MockModelStore
	registry   *registry.Registry
	classifier *fakeClassifier
	rules      *fakeRules
}

func validatedExamples() fakeExamples {
	var out fakeExamples
	for _, ex := range testhelpers.SeparableExamples() {
		out = append(out, domain.TrainingExample{Content: ex.Text, CategoryName: ex.Category, IsValidated: true})
	}
	return out
}

func setupTest(t *testing.T, examples fakeExamples, processor api.PendingProcessor) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	models := testhelpers.NewMockModelStore()
	reg := registry.New(models, testhelpers.NewMockBlobStore(), registry.Config{}, nil, nil)
	t.Cleanup(reg.Wait)

	env := &testEnv{
		models:     models,
		registry:   reg,
		classifier: &fakeClassifier{},
		rules:      &fakeRules{},
	}

	handler := api.NewHandler(api.Dependencies{
		Classifier: env.classifier,
		Registry:   reg,
		Rules:      env.rules,
		Categories: fakeCategories{"Eau": {ID: 7, Name: "Eau"}},
		Examples:   examples,
		Logs:       testLogs,
		Processor:  processor,
	}, nil)

	env.router = gin.New()
	api.SetupRoutes(env.router, handler, telemetry.NewProvider().Handler())
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestListModels(t *testing.T) {
	env := setupTest(t, nil, nil)
	env.models.Put(domain.Model{Name: "v1", ModelType: domain.DefaultModelType})
	env.models.Put(domain.Model{Name: "v2", ModelType: domain.DefaultModelType, IsTrained: true, IsActive: true})

	w := env.do(t, http.MethodGet, "/api/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ModelsListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)

	states := map[string]string{}
	for _, m := range resp.Models {
		states[m.Name] = m.State
	}
	assert.Equal(t, string(domain.ModelStateUntrained), states["v1"])
	assert.Equal(t, string(domain.ModelStateTrainedActive), states["v2"])
}

func TestActivateModel(t *testing.T) {
	env := setupTest(t, nil, nil)
	trained := env.models.Put(domain.Model{ModelType: domain.DefaultModelType, IsTrained: true})
	untrained := env.models.Put(domain.Model{ModelType: domain.DefaultModelType})

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "trained model", path: fmt.Sprintf("/api/v1/models/%d/activate", trained), want: http.StatusOK},
		{name: "untrained model", path: fmt.Sprintf("/api/v1/models/%d/activate", untrained), want: http.StatusUnprocessableEntity},
		{name: "unknown model", path: "/api/v1/models/999/activate", want: http.StatusNotFound},
		{name: "malformed id", path: "/api/v1/models/abc/activate", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	assert.Equal(t, 1, env.models.ActiveCount(domain.DefaultModelType))
}

func TestTrainModel(t *testing.T) {
	t.Run("trains with validated examples", func(t *testing.T) {
		env := setupTest(t, validatedExamples(), nil)
		id := env.models.Put(domain.Model{ModelType: domain.DefaultModelType})

		w := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/models/%d/train", id), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp api.TrainResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.ModelID)
		assert.Equal(t, 10, resp.Metrics.Size)
	})

	t.Run("no examples", func(t *testing.T) {
		env := setupTest(t, fakeExamples{}, nil)
		id := env.models.Put(domain.Model{ModelType: domain.DefaultModelType})

		w := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/models/%d/train", id), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	})
}

func TestInvalidateModelCache(t *testing.T) {
	env := setupTest(t, nil, nil)

	w := env.do(t, http.MethodDelete, "/api/v1/models/3/cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, env.registry.Cached(3))
}

func TestClassify(t *testing.T) {
	env := setupTest(t, nil, nil)
	env.rules.rules = []domain.KeywordRule{{Name: "forage", Keywords: domain.Keywords{"forage"}}}

	w := env.do(t, http.MethodPost, "/api/v1/classify", api.ClassifyRequest{Text: "plus d'eau au forage"})
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.ClassificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "Eau", result.CategoryName())
	assert.Equal(t, domain.PriorityHigh, result.Priority)
	assert.Equal(t, 0, env.classifier.rulesSeen, "rules are opt-in")

	w = env.do(t, http.MethodPost, "/api/v1/classify", api.ClassifyRequest{Text: "forage", ApplyRules: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.classifier.rulesSeen)
}

func TestClassify_InvalidRequest(t *testing.T) {
	env := setupTest(t, nil, nil)

	w := env.do(t, http.MethodPost, "/api/v1/classify", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRule(t *testing.T) {
	env := setupTest(t, nil, nil)

	tests := []struct {
		name string
		req  api.CreateRuleRequest
		want int
	}{
		{
			name: "valid rule",
			req:  api.CreateRuleRequest{Name: "forage", Category: "Eau", Keywords: []string{" Forage ", "pompe", "forage"}, Priority: "HIGH"},
			want: http.StatusCreated,
		},
		{
			name: "unknown category",
			req:  api.CreateRuleRequest{Name: "x", Category: "Abri", Keywords: []string{"tente"}},
			want: http.StatusNotFound,
		},
		{
			name: "bad priority",
			req:  api.CreateRuleRequest{Name: "x", Category: "Eau", Keywords: []string{"puits"}, Priority: "asap"},
			want: http.StatusBadRequest,
		},
		{
			name: "blank keywords",
			req:  api.CreateRuleRequest{Name: "x", Category: "Eau", Keywords: []string{"  "}},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/rules", tt.req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	require.Len(t, env.rules.rules, 1)
	created := env.rules.rules[0]
	assert.Equal(t, int64(7), created.CategoryID)
	assert.Equal(t, domain.Keywords{"forage", "pompe"}, created.Keywords)
	require.NotNil(t, created.Priority)
	assert.Equal(t, domain.PriorityHigh, *created.Priority)

	w := env.do(t, http.MethodGet, "/api/v1/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list api.RulesListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
}

func TestProcessPending(t *testing.T) {
	tests := []struct {
		name      string
		processor api.PendingProcessor
		want      int
	}{
		{name: "processor disabled", processor: nil, want: http.StatusServiceUnavailable},
		{name: "batch written", processor: &fakeProcessor{written: 4}, want: http.StatusOK},
		{name: "store failure", processor: &fakeProcessor{err: errors.New("connection refused")}, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTest(t, nil, tt.processor)
			w := env.do(t, http.MethodPost, "/api/v1/feedback/process", nil)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection refused")
			}
		})
	}
}

func TestProcessorStats(t *testing.T) {
	env := setupTest(t, nil, nil)
	w := env.do(t, http.MethodGet, "/api/v1/feedback/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	env = setupTest(t, nil, &fakeProcessor{})
	w = env.do(t, http.MethodGet, "/api/v1/feedback/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, true, stats["running"])
}

func TestFeedbackLogs(t *testing.T) {
	env := setupTest(t, nil, nil)

	w := env.do(t, http.MethodGet, "/api/v1/feedback/5/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.FeedbackLogsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, domain.FeedbackLogActionCategorized, resp.Logs[0].Action)

	w = env.do(t, http.MethodGet, "/api/v1/feedback/x/logs", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTest(t, nil, nil)

	w := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
