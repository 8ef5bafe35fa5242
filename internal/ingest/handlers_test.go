package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/good-yellow-bee/oncall/internal/heartbeat"
	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/queue"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

type mockChannelRepo struct {
	byToken map[string]*models.Channel
}

func (m *mockChannelRepo) Create(ctx context.Context, ch *models.Channel) error {
	m.byToken[ch.Token] = ch
	return nil
}

func (m *mockChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	for _, ch := range m.byToken {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockChannelRepo) GetByToken(ctx context.Context, token string) (*models.Channel, error) {
	ch, ok := m.byToken[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return ch, nil
}

func (m *mockChannelRepo) List(ctx context.Context) ([]*models.Channel, error) { return nil, nil }

func (m *mockChannelRepo) ListByOrg(ctx context.Context, orgID string) ([]*models.Channel, error) {
	return nil, nil
}

func (m *mockChannelRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *mockChannelRepo) SetAllowUnlimited(ctx context.Context, id string, allow bool) error {
	return nil
}

type mockHeartbeatRepo struct {
	byID map[string]*models.Heartbeat
}

func (m *mockHeartbeatRepo) find(channelID, userDefinedID string) *models.Heartbeat {
	for _, hb := range m.byID {
		if hb.ChannelID == channelID && hb.UserDefinedID == userDefinedID {
			return hb
		}
	}
	return nil
}

func (m *mockHeartbeatRepo) Create(ctx context.Context, hb *models.Heartbeat) error {
	if m.find(hb.ChannelID, hb.UserDefinedID) != nil {
		return storage.ErrDuplicate
	}
	m.byID[hb.ID] = hb
	return nil
}

func (m *mockHeartbeatRepo) GetByID(ctx context.Context, id string) (*models.Heartbeat, error) {
	hb, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return hb, nil
}

func (m *mockHeartbeatRepo) Get(ctx context.Context, channelID, userDefinedID string) (*models.Heartbeat, error) {
	hb := m.find(channelID, userDefinedID)
	if hb == nil {
		return nil, storage.ErrNotFound
	}
	return hb, nil
}

func (m *mockHeartbeatRepo) Delete(ctx context.Context, channelID, userDefinedID string) error {
	hb := m.find(channelID, userDefinedID)
	if hb == nil {
		return storage.ErrNotFound
	}
	delete(m.byID, hb.ID)
	return nil
}

func (m *mockHeartbeatRepo) ListByChannel(ctx context.Context, channelID string) ([]*models.Heartbeat, error) {
	var out []*models.Heartbeat
	for _, hb := range m.byID {
		if hb.ChannelID == channelID {
			out = append(out, hb)
		}
	}
	return out, nil
}

func (m *mockHeartbeatRepo) SetCheckTask(ctx context.Context, id, taskID string) error {
	if hb, ok := m.byID[id]; ok {
		hb.LastCheckTaskID = taskID
		return nil
	}
	return storage.ErrNotFound
}

func (m *mockHeartbeatRepo) Reschedule(ctx context.Context, channelID, userDefinedID, taskID string, signalAt time.Time) (*models.Heartbeat, error) {
	hb := m.find(channelID, userDefinedID)
	if hb == nil {
		return nil, storage.ErrNotFound
	}
	prev := *hb
	hb.LastSignalAt = signalAt
	hb.LastCheckTaskID = taskID
	hb.Alive = true
	return &prev, nil
}

func (m *mockHeartbeatRepo) MarkDead(ctx context.Context, id, taskID string) (bool, error) {
	hb, ok := m.byID[id]
	if !ok || hb.LastCheckTaskID != taskID || !hb.Alive {
		return false, nil
	}
	hb.Alive = false
	return true, nil
}

// mockStorage wires only the repositories the ingestion path touches.
type mockStorage struct {
	channels   *mockChannelRepo
	heartbeats *mockHeartbeatRepo
}

func (m *mockStorage) Open() error    { return nil }
func (m *mockStorage) Close() error   { return nil }
func (m *mockStorage) Migrate() error { return nil }

func (m *mockStorage) Organizations() storage.OrganizationRepository { return nil }
func (m *mockStorage) Users() storage.UserRepository                 { return nil }
func (m *mockStorage) Channels() storage.ChannelRepository           { return m.channels }
func (m *mockStorage) Alerts() storage.AlertRepository               { return nil }
func (m *mockStorage) Heartbeats() storage.HeartbeatRepository       { return m.heartbeats }
func (m *mockStorage) Notifications() storage.NotificationRepository { return nil }
func (m *mockStorage) Tasks() storage.TaskRepository                 { return nil }

type mockSubmitter struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (m *mockSubmitter) Submit(ctx context.Context, task queue.Task, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockSubmitter) ofKind(kind queue.Kind) []queue.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []queue.Task
	for _, task := range m.tasks {
		if task.Kind == kind {
			out = append(out, task)
		}
	}
	return out
}

type testEnv struct {
	server    *Server
	router    http.Handler
	submitter *mockSubmitter
	channels  *mockChannelRepo
}

func newTestEnv(t *testing.T, cfg *Config, channels ...*models.Channel) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}

	channelRepo := &mockChannelRepo{byToken: make(map[string]*models.Channel)}
	for _, ch := range channels {
		channelRepo.byToken[ch.Token] = ch
	}
	store := &mockStorage{
		channels:   channelRepo,
		heartbeats: &mockHeartbeatRepo{byID: make(map[string]*models.Heartbeat)},
	}

	submitter := &mockSubmitter{}
	monitor := heartbeat.NewMonitor(store.heartbeats, submitter)

	server, err := New(cfg, store, submitter, monitor)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testEnv{
		server:    server,
		router:    server.setupRouter(),
		submitter: submitter,
		channels:  channelRepo,
	}
}

func (e *testEnv) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func alertmanagerChannel(token string) *models.Channel {
	return &models.Channel{
		ID:          "ch-" + token,
		OrgID:       "org1",
		Token:       token,
		Integration: models.IntegrationAlertmanager,
		Name:        "prod alertmanager",
	}
}

func TestAlertmanagerEnqueuesOnePerAlert(t *testing.T) {
	env := newTestEnv(t, nil, alertmanagerChannel("amkey"))

	body := `{"alerts": [
		{"labels": {"alertname": "HighCPU"}, "annotations": {"summary": "cpu is high"}},
		{"labels": {"alertname": "HighMem"}},
		{"labels": {"alertname": "DiskFull"}}
	]}`
	rec := env.post(t, "/integrations/alertmanager/amkey", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "Ok." {
		t.Errorf("body = %q, want Ok.", got)
	}
	if got := len(env.submitter.ofKind(queue.KindCreateAlert)); got != 3 {
		t.Fatalf("create_alert tasks = %d, want 3", got)
	}
}

func TestAlertmanagerMissingAlertsListIsAccepted(t *testing.T) {
	env := newTestEnv(t, nil, alertmanagerChannel("amkey"))

	rec := env.post(t, "/integrations/alertmanager/amkey", `{"status": "firing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := len(env.submitter.ofKind(queue.KindCreateAlert)); got != 0 {
		t.Errorf("create_alert tasks = %d, want 0", got)
	}
}

func TestUnknownChannelKey(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.post(t, "/integrations/alertmanager/nokey", `{"alerts": []}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Integration key was not found. Permission denied.") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestWrongIntegrationType(t *testing.T) {
	grafana := &models.Channel{
		ID:          "ch-gf",
		Token:       "gfkey",
		Integration: models.IntegrationGrafana,
		Name:        "grafana",
	}
	env := newTestEnv(t, nil, grafana)

	rec := env.post(t, "/integrations/alertmanager/gfkey", `{"alerts": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "AlertManager") || !strings.Contains(body, "Grafana") {
		t.Errorf("body = %q, want both integration names", body)
	}
	if got := len(env.submitter.tasks); got != 0 {
		t.Errorf("tasks = %d, want 0", got)
	}
}

func TestRateLimiting(t *testing.T) {
	env := newTestEnv(t, &Config{RateLimit: 1, RateLimitWindow: time.Minute}, alertmanagerChannel("amkey"))

	body := `{"alerts": [{"labels": {"alertname": "x"}}]}`
	if rec := env.post(t, "/integrations/alertmanager/amkey", body); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := env.post(t, "/integrations/alertmanager/amkey", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
}

func TestRateLimitBypass(t *testing.T) {
	t.Run("allow-listed channel", func(t *testing.T) {
		ch := alertmanagerChannel("amkey")
		ch.AllowUnlimited = true
		env := newTestEnv(t, &Config{RateLimit: 1, RateLimitWindow: time.Minute}, ch)

		body := `{"alerts": [{"labels": {"alertname": "x"}}]}`
		for i := 0; i < 5; i++ {
			if rec := env.post(t, "/integrations/alertmanager/amkey", body); rec.Code != http.StatusOK {
				t.Fatalf("request %d status = %d", i, rec.Code)
			}
		}
	})

	t.Run("debug mode", func(t *testing.T) {
		env := newTestEnv(t, &Config{Debug: true, RateLimit: 1, RateLimitWindow: time.Minute}, alertmanagerChannel("amkey"))

		body := `{"alerts": [{"labels": {"alertname": "x"}}]}`
		for i := 0; i < 5; i++ {
			if rec := env.post(t, "/integrations/alertmanager/amkey", body); rec.Code != http.StatusOK {
				t.Fatalf("request %d status = %d", i, rec.Code)
			}
		}
	})
}

func TestGrafanaLegacySlackFallback(t *testing.T) {
	grafana := &models.Channel{
		ID:          "ch-gf",
		Token:       "gfkey",
		Integration: models.IntegrationGrafana,
		Name:        "grafana",
	}
	env := newTestEnv(t, nil, grafana)

	body := `{
		"title": "ignored when attachments present",
		"attachments": [{
			"title": "[Alerting] RAM Usage alert",
			"text": "ram is gone",
			"title_link": "http://grafana/d/1",
			"fields": [{"title": "System", "value": 97.2}]
		}]
	}`
	rec := env.post(t, "/integrations/grafana/gfkey", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}

	tasks := env.submitter.ofKind(queue.KindCreateAlert)
	if len(tasks) != 1 {
		t.Fatalf("create_alert tasks = %d, want 1", len(tasks))
	}
	var payload queue.CreateAlertPayload
	if err := queue.DecodePayload(tasks[0], &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Alert.Message == nil || !strings.Contains(*payload.Alert.Message, "Misconfiguration detected") {
		t.Errorf("message = %v, want misconfiguration notice", payload.Alert.Message)
	}
}

func TestUniversalSlugCheck(t *testing.T) {
	webhook := &models.Channel{
		ID:          "ch-wh",
		Token:       "whkey",
		Integration: models.IntegrationWebhook,
		Name:        "generic",
		Slug:        "zabbix",
	}
	env := newTestEnv(t, nil, webhook)

	if rec := env.post(t, "/integrations/universal/whkey/nagios", `{"a": 1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched slug status = %d, want 400", rec.Code)
	}

	rec := env.post(t, "/integrations/universal/whkey/zabbix", `{"a": 1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("matched slug status = %d", rec.Code)
	}
	if got := len(env.submitter.ofKind(queue.KindCreateAlert)); got != 1 {
		t.Fatalf("create_alert tasks = %d, want 1", got)
	}
}

func TestAmazonSNSNonJSONMessage(t *testing.T) {
	sns := &models.Channel{
		ID:          "ch-sns",
		Token:       "snskey",
		Integration: models.IntegrationAmazonSNS,
		Name:        "sns",
	}
	env := newTestEnv(t, nil, sns)

	rec := env.post(t, "/integrations/amazon_sns/snskey", `{"Message": "plain log line", "TopicArn": "arn:aws:sns:us-east-1:123:t"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}

	tasks := env.submitter.ofKind(queue.KindCreateAlert)
	if len(tasks) != 1 {
		t.Fatalf("create_alert tasks = %d, want 1", len(tasks))
	}
	var payload queue.CreateAlertPayload
	if err := queue.DecodePayload(tasks[0], &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Alert.Message == nil || !strings.Contains(*payload.Alert.Message, "plain log line") {
		t.Errorf("message = %v, want original text preserved", payload.Alert.Message)
	}
}

func TestEmailChannelResolution(t *testing.T) {
	email := &models.Channel{
		ID:          "ch-em",
		Token:       "zzz",
		Integration: models.IntegrationEmail,
		Name:        "inbound email",
	}
	env := newTestEnv(t, nil, email)

	t.Run("to header resolves", func(t *testing.T) {
		rec := env.post(t, "/integrations/email", `{"to": "zzz@in.example.com", "subject": "disk full", "text": "body"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("envelope fallback", func(t *testing.T) {
		body := `{"to": "unknown@in.example.com", "envelope": "{\"to\":[\"zzz@in.example.com\"]}", "subject": "s", "text": "t"}`
		rec := env.post(t, "/integrations/email", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("both fail", func(t *testing.T) {
		body := `{"to": "nope@in.example.com", "envelope": "{\"to\":[\"alsonope@in.example.com\"]}", "subject": "s", "text": "t"}`
		rec := env.post(t, "/integrations/email", body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})
}
