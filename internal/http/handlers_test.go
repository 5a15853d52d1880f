package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/governance-console/internal/application"
	"github.com/example/governance-console/internal/document"
	"github.com/example/governance-console/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubAuthService struct {
	authenticateFn func(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	revokeFn       func(ctx context.Context, token string) error
}

func (s *stubAuthService) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	if s.authenticateFn == nil {
		return application.AuthenticateResult{}, errors.New("unexpected Authenticate call")
	}
	return s.authenticateFn(ctx, params)
}

func (s *stubAuthService) Register(context.Context, application.RegisterParams) (application.User, error) {
	return application.User{}, errors.New("unexpected Register call")
}

func (s *stubAuthService) ChangePassword(context.Context, application.ChangePasswordParams) error {
	return errors.New("unexpected ChangePassword call")
}

func (s *stubAuthService) RequestPasswordReset(context.Context, string) (application.ResetToken, error) {
	return application.ResetToken{}, errors.New("unexpected RequestPasswordReset call")
}

func (s *stubAuthService) ResetPassword(context.Context, application.ResetPasswordParams) error {
	return errors.New("unexpected ResetPassword call")
}

func (s *stubAuthService) UpdateProfile(context.Context, application.UpdateProfileParams) (application.User, error) {
	return application.User{}, errors.New("unexpected UpdateProfile call")
}

func (s *stubAuthService) RevokeSession(ctx context.Context, token string) error {
	if s.revokeFn == nil {
		return errors.New("unexpected RevokeSession call")
	}
	return s.revokeFn(ctx, token)
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Parallel()

	t.Run("issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()

		expires := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		service := &stubAuthService{
			authenticateFn: func(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
				if params.Email != "ana@example.com" {
					t.Fatalf("unexpected email %q", params.Email)
				}
				return application.AuthenticateResult{
					User:    application.User{ID: "user-1", Email: params.Email, Name: "Ana"},
					Session: application.AuthSession{Token: "token-1", ExpiresAt: expires},
				}, nil
			},
		}
		handler := NewAuthHandler(service, nil, "", testLogger())

		body := bytes.NewBufferString(`{"correo":"Ana@Example.com","contrasena":"secreta123"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		recorder := httptest.NewRecorder()

		handler.Login(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if got := recorder.Header().Get("X-Session-Token"); got != "token-1" {
			t.Fatalf("expected session token header, got %q", got)
		}

		var cookie *http.Cookie
		for _, c := range recorder.Result().Cookies() {
			if c.Name == "session_token" {
				cookie = c
			}
		}
		if cookie == nil || cookie.Value != "token-1" {
			t.Fatalf("expected session_token cookie, got %+v", cookie)
		}

		var resp struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"id"`
			} `json:"usuario"`
		}
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Token != "token-1" || resp.User.ID != "user-1" {
			t.Fatalf("unexpected response payload: %+v", resp)
		}
	})

	t.Run("maps invalid credentials to 401 with localized message", func(t *testing.T) {
		t.Parallel()

		service := &stubAuthService{
			authenticateFn: func(context.Context, application.AuthenticateParams) (application.AuthenticateResult, error) {
				return application.AuthenticateResult{}, application.ErrInvalidCredentials
			},
		}
		handler := NewAuthHandler(service, nil, "", testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"correo":"x@y.com","contrasena":"mala"}`))
		recorder := httptest.NewRecorder()

		handler.Login(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("expected AUTH_INVALID_CREDENTIALS, got %q", resp.ErrorCode)
		}
	})

	t.Run("logout revokes the session and clears the cookie", func(t *testing.T) {
		t.Parallel()

		var revoked string
		service := &stubAuthService{
			revokeFn: func(_ context.Context, token string) error {
				revoked = token
				return nil
			},
		}
		handler := NewAuthHandler(service, nil, "", testLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer token-2")
		recorder := httptest.NewRecorder()

		handler.Logout(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if revoked != "token-2" {
			t.Fatalf("expected token-2 revoked, got %q", revoked)
		}
	})
}

type stubSessionService struct {
	createFn     func(ctx context.Context, params application.CreateSessionParams) (application.Session, error)
	getFn        func(ctx context.Context, id string) (application.Session, error)
	attendanceFn func(ctx context.Context, params application.AttendanceParams) (application.AttendanceResult, error)
}

func (s *stubSessionService) CreateSession(ctx context.Context, params application.CreateSessionParams) (application.Session, error) {
	if s.createFn == nil {
		return application.Session{}, errors.New("unexpected CreateSession call")
	}
	return s.createFn(ctx, params)
}

func (s *stubSessionService) GetSession(ctx context.Context, id string) (application.Session, error) {
	if s.getFn == nil {
		return application.Session{}, errors.New("unexpected GetSession call")
	}
	return s.getFn(ctx, id)
}

func (s *stubSessionService) ListSessions(context.Context) ([]application.Session, error) {
	return nil, errors.New("unexpected ListSessions call")
}

func (s *stubSessionService) CloseSession(context.Context, application.Principal, string) error {
	return errors.New("unexpected CloseSession call")
}

func (s *stubSessionService) RegisterAttendance(ctx context.Context, params application.AttendanceParams) (application.AttendanceResult, error) {
	if s.attendanceFn == nil {
		return application.AttendanceResult{}, errors.New("unexpected RegisterAttendance call")
	}
	return s.attendanceFn(ctx, params)
}

type recordingMailer struct {
	sent []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubDocuments struct {
	file document.File
	err  error
}

func (s stubDocuments) ConvocationDocument(context.Context, string) (document.File, error) {
	return s.file, s.err
}

type stubMembers struct {
	emails []string
}

func (s stubMembers) MemberEmails(context.Context) ([]string, error) {
	return s.emails, nil
}

type stubMailbox struct {
	delivered []string
}

func (s *stubMailbox) Deliver(_ context.Context, _ string, _ string, content string) (application.Notification, error) {
	s.delivered = append(s.delivered, content)
	return application.Notification{ID: "n-1"}, nil
}

type stubScheduler struct {
	ats    []time.Time
	runNow bool
}

func (s *stubScheduler) Schedule(at time.Time, task func(ctx context.Context)) {
	s.ats = append(s.ats, at)
	if s.runNow {
		task(context.Background())
	}
}

func requestWithPrincipal(req *http.Request) *http.Request {
	ctx := ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"})
	return req.WithContext(ctx)
}

func TestSessionHandlerCreate(t *testing.T) {
	t.Parallel()

	t.Run("validation failures return 422 with focus section", func(t *testing.T) {
		t.Parallel()

		service := &stubSessionService{
			createFn: func(context.Context, application.CreateSessionParams) (application.Session, error) {
				vErr := &application.ValidationError{
					FieldErrors:  map[string]string{"invitados": "at least one invitee is required"},
					FocusSection: "convocados",
				}
				return application.Session{}, vErr
			},
		}
		handler := NewSessionHandler(service, nil, nil, nil, nil, nil, nil, testLogger())

		body := strings.NewReader(`{"tipo":"ORDINARIA","fecha":"2025-06-10","hora":"10:00"}`)
		req := requestWithPrincipal(httptest.NewRequest(http.MethodPost, "/api/sesiones", body))
		recorder := httptest.NewRecorder()

		handler.Create(recorder, req)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		var resp errorResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Focus != "convocados" {
			t.Fatalf("expected focus convocados, got %q", resp.Focus)
		}
		if resp.Errors["invitados"] != "Debe convocar al menos a un invitado." {
			t.Fatalf("expected localized invitee message, got %q", resp.Errors["invitados"])
		}
	})

	t.Run("dispatches convocation immediately when requested", func(t *testing.T) {
		t.Parallel()

		session := application.Session{
			ID:   "ses-1",
			Type: application.SessionOrdinary,
			Date: "2025-06-10",
			Time: "10:00",
			Invitees: []application.Invitee{
				{Name: "Ana", Email: "ana@example.com"},
			},
			Agenda: []application.AgendaItem{
				{ID: "i1", Title: "Presupuesto", Presenter: "Ana", Type: application.ItemVote, Duration: 20},
			},
		}
		service := &stubSessionService{
			createFn: func(_ context.Context, params application.CreateSessionParams) (application.Session, error) {
				if len(params.Input.Invitees) != 1 {
					t.Fatalf("expected one invitee, got %d", len(params.Input.Invitees))
				}
				return session, nil
			},
		}
		mailer := &recordingMailer{}
		mailbox := &stubMailbox{}
		handler := NewSessionHandler(
			service,
			stubDocuments{file: document.File{Name: "convocatoria.pdf", Bytes: []byte("%PDF"), Base64: "JVBERg=="}},
			stubMembers{emails: []string{"junta@example.com"}},
			notify.NewDispatcher(mailer, testLogger()),
			nil,
			nil,
			mailbox,
			testLogger(),
		)

		body := strings.NewReader(`{
			"tipo":"ORDINARIA","fecha":"2025-06-10","hora":"10:00","modalidad":"virtual",
			"invitados":[{"nombre":"Ana","correo":"ana@example.com"}],
			"agenda":[{"titulo":"Presupuesto","expositor":"Ana","tipo":"votacion","duracion":20}],
			"notificaciones":{"enviar_ahora":true}
		}`)
		req := requestWithPrincipal(httptest.NewRequest(http.MethodPost, "/api/sesiones", body))
		recorder := httptest.NewRecorder()

		handler.Create(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		// Ana presents the only item, so she gets a specialized notice and the
		// board address gets the general one.
		if len(mailer.sent) != 2 {
			t.Fatalf("expected 2 notices, got %d", len(mailer.sent))
		}
		if len(mailbox.delivered) != 1 || !strings.Contains(mailbox.delivered[0], "sent to 2/2") {
			t.Fatalf("expected dispatch report in mailbox, got %v", mailbox.delivered)
		}

		var resp createSessionResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Session.ID != "ses-1" {
			t.Fatalf("unexpected session id %q", resp.Session.ID)
		}
		if !strings.Contains(resp.Dispatch, "sent to 2/2") {
			t.Fatalf("expected dispatch summary, got %q", resp.Dispatch)
		}
	})

	t.Run("delivery failures do not fail the create", func(t *testing.T) {
		t.Parallel()

		session := application.Session{
			ID:       "ses-2",
			Type:     application.SessionOrdinary,
			Date:     "2025-06-10",
			Time:     "10:00",
			Invitees: []application.Invitee{{Name: "Ana", Email: "ana@example.com"}},
			Agenda:   []application.AgendaItem{{ID: "i1", Title: "Informe", Type: application.ItemInformation, Duration: 10}},
		}
		service := &stubSessionService{
			createFn: func(context.Context, application.CreateSessionParams) (application.Session, error) {
				return session, nil
			},
		}
		mailer := &recordingMailer{err: errors.New("relay unavailable")}
		handler := NewSessionHandler(service, stubDocuments{file: document.File{Name: "c.pdf", Bytes: []byte("x")}}, stubMembers{}, notify.NewDispatcher(mailer, testLogger()), nil, nil, &stubMailbox{}, testLogger())

		body := strings.NewReader(`{
			"tipo":"ORDINARIA","fecha":"2025-06-10","hora":"10:00",
			"invitados":[{"nombre":"Ana","correo":"ana@example.com"}],
			"agenda":[{"titulo":"Informe","tipo":"informacion","duracion":10}],
			"notificaciones":{"enviar_ahora":true}
		}`)
		req := requestWithPrincipal(httptest.NewRequest(http.MethodPost, "/api/sesiones", body))
		recorder := httptest.NewRecorder()

		handler.Create(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201 despite delivery failure, got %d", recorder.Code)
		}
		var resp createSessionResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !strings.Contains(resp.Dispatch, "failures") {
			t.Fatalf("expected failure summary, got %q", resp.Dispatch)
		}
	})

	t.Run("hands reminder and scheduled sends to the scheduler", func(t *testing.T) {
		t.Parallel()

		session := application.Session{
			ID:   "ses-3",
			Type: application.SessionOrdinary,
			Date: "2030-06-10",
			Time: "10:00",
			Invitees: []application.Invitee{
				{Name: "Ana", Email: "ana@example.com"},
			},
			Agenda: []application.AgendaItem{
				{ID: "i1", Title: "Presupuesto", Presenter: "Ana", Type: application.ItemVote, Duration: 20},
			},
		}
		service := &stubSessionService{
			createFn: func(context.Context, application.CreateSessionParams) (application.Session, error) {
				return session, nil
			},
		}
		mailer := &recordingMailer{}
		mailbox := &stubMailbox{}
		scheduler := &stubScheduler{runNow: true}
		handler := NewSessionHandler(
			service,
			stubDocuments{file: document.File{Name: "convocatoria.pdf", Bytes: []byte("%PDF"), Base64: "JVBERg=="}},
			stubMembers{emails: []string{"junta@example.com"}},
			notify.NewDispatcher(mailer, testLogger()),
			scheduler,
			nil,
			mailbox,
			testLogger(),
		)

		body := strings.NewReader(`{
			"tipo":"ORDINARIA","fecha":"2030-06-10","hora":"10:00",
			"invitados":[{"nombre":"Ana","correo":"ana@example.com"}],
			"agenda":[{"titulo":"Presupuesto","expositor":"Ana","tipo":"votacion","duracion":20}],
			"notificaciones":{"recordatorio_24h":true,"programada":"2030-06-01T09:00:00Z"}
		}`)
		req := requestWithPrincipal(httptest.NewRequest(http.MethodPost, "/api/sesiones", body))
		recorder := httptest.NewRecorder()

		handler.Create(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if len(scheduler.ats) != 2 {
			t.Fatalf("expected 2 deferred sends, got %d", len(scheduler.ats))
		}
		wantScheduled := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
		wantReminder := time.Date(2030, 6, 9, 10, 0, 0, 0, time.UTC)
		if !scheduler.ats[0].Equal(wantScheduled) || !scheduler.ats[1].Equal(wantReminder) {
			t.Fatalf("unexpected scheduled times %v", scheduler.ats)
		}

		// runNow fires both deferred sends in place: each dispatches one notice
		// to the presenter plus one to the board address.
		if len(mailer.sent) != 4 {
			t.Fatalf("expected 4 notices from deferred sends, got %d", len(mailer.sent))
		}
		reminders := 0
		for _, msg := range mailer.sent {
			if strings.HasPrefix(msg.Subject, "Recordatorio - ") {
				reminders++
			}
		}
		if reminders != 2 {
			t.Fatalf("expected 2 reminder notices, got %d", reminders)
		}
		if len(mailbox.delivered) != 2 {
			t.Fatalf("expected a dispatch report per deferred send, got %d", len(mailbox.delivered))
		}
	})

	t.Run("clears the caller's draft after a successful create", func(t *testing.T) {
		t.Parallel()

		drafts := NewDraftHandler(testLogger())
		putBody := strings.NewReader(`{"tipo":"EXTRAORDINARIA","fecha":"2025-07-01","hora":"09:00","invitados":[{"nombre":"Ana","correo":"ana@example.com"}]}`)
		putReq := requestWithPrincipal(httptest.NewRequest(http.MethodPut, "/api/sesiones/borrador", putBody))
		drafts.Put(httptest.NewRecorder(), putReq)

		service := &stubSessionService{
			createFn: func(context.Context, application.CreateSessionParams) (application.Session, error) {
				return application.Session{ID: "ses-4", Date: "2025-07-01", Time: "09:00"}, nil
			},
		}
		handler := NewSessionHandler(service, nil, nil, nil, nil, drafts, nil, testLogger())

		body := strings.NewReader(`{"tipo":"EXTRAORDINARIA","fecha":"2025-07-01","hora":"09:00"}`)
		req := requestWithPrincipal(httptest.NewRequest(http.MethodPost, "/api/sesiones", body))
		recorder := httptest.NewRecorder()

		handler.Create(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", recorder.Code, recorder.Body.String())
		}

		getReq := requestWithPrincipal(httptest.NewRequest(http.MethodGet, "/api/sesiones/borrador", nil))
		getRecorder := httptest.NewRecorder()
		drafts.Get(getRecorder, getReq)

		var draftResp draftResponse
		if err := json.NewDecoder(getRecorder.Body).Decode(&draftResp); err != nil {
			t.Fatalf("failed to decode draft: %v", err)
		}
		if draftResp.Dirty || draftResp.Date != "" || len(draftResp.Invitees) != 0 {
			t.Fatalf("expected pristine draft after submit, got %+v", draftResp)
		}
	})
}

func TestSessionHandlerAttendance(t *testing.T) {
	t.Parallel()

	service := &stubSessionService{
		attendanceFn: func(_ context.Context, params application.AttendanceParams) (application.AttendanceResult, error) {
			if params.SessionID != "ses-1" {
				t.Fatalf("unexpected session id %q", params.SessionID)
			}
			return application.AttendanceResult{Invited: 4, Present: 3, HasQuorum: true}, nil
		},
	}
	handler := NewSessionHandler(service, nil, nil, nil, nil, nil, nil, testLogger())

	body := strings.NewReader(`{"presentes":["ana@example.com","beto@example.com","cari@example.com"]}`)
	req := requestWithPrincipal(httptest.NewRequest(http.MethodPost, "/api/sesiones/ses-1/asistencia", body))
	req = mux.SetURLVars(req, map[string]string{"id": "ses-1"})
	recorder := httptest.NewRecorder()

	handler.RegisterAttendance(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
	}
	var resp attendanceResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.HasQuorum || resp.Present != 3 || resp.Invited != 4 {
		t.Fatalf("unexpected attendance response: %+v", resp)
	}
}

type stubMinutesService struct {
	saveFn func(ctx context.Context, params application.SaveMinutesParams) (application.Minutes, error)
	pdfFn  func(ctx context.Context, sessionID string) (document.File, error)
}

func (s *stubMinutesService) SeedResolutions(context.Context, string) ([]application.Resolution, error) {
	return nil, errors.New("unexpected SeedResolutions call")
}

func (s *stubMinutesService) SaveMinutes(ctx context.Context, params application.SaveMinutesParams) (application.Minutes, error) {
	if s.saveFn == nil {
		return application.Minutes{}, errors.New("unexpected SaveMinutes call")
	}
	return s.saveFn(ctx, params)
}

func (s *stubMinutesService) GetMinutes(context.Context, string) (application.Minutes, error) {
	return application.Minutes{}, errors.New("unexpected GetMinutes call")
}

func (s *stubMinutesService) ActaDocument(ctx context.Context, sessionID string) (document.File, error) {
	if s.pdfFn == nil {
		return document.File{}, errors.New("unexpected ActaDocument call")
	}
	return s.pdfFn(ctx, sessionID)
}

func (s *stubMinutesService) ConvocationDocument(context.Context, string) (document.File, error) {
	return document.File{}, errors.New("unexpected ConvocationDocument call")
}

func TestActaHandler(t *testing.T) {
	t.Parallel()

	t.Run("locked minutes map to 409 with ACTA_LOCKED code", func(t *testing.T) {
		t.Parallel()

		service := &stubMinutesService{
			saveFn: func(context.Context, application.SaveMinutesParams) (application.Minutes, error) {
				return application.Minutes{}, application.ErrMinutesLocked
			},
		}
		handler := NewActaHandler(service, nil, nil, nil, nil, testLogger())

		req := requestWithPrincipal(httptest.NewRequest(http.MethodPut, "/api/sesiones/ses-1/acta", strings.NewReader(`{"contenido":"borrador"}`)))
		req = mux.SetURLVars(req, map[string]string{"id": "ses-1"})
		recorder := httptest.NewRecorder()

		handler.Save(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", recorder.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ErrorCode != "ACTA_LOCKED" {
			t.Fatalf("expected ACTA_LOCKED, got %q", resp.ErrorCode)
		}
	})

	t.Run("save forwards raw vote strings", func(t *testing.T) {
		t.Parallel()

		var captured application.SaveMinutesParams
		service := &stubMinutesService{
			saveFn: func(_ context.Context, params application.SaveMinutesParams) (application.Minutes, error) {
				captured = params
				return application.Minutes{ID: "acta-1", SessionID: params.SessionID}, nil
			},
		}
		handler := NewActaHandler(service, nil, nil, nil, nil, testLogger())

		body := strings.NewReader(`{
			"contenido":"borrador",
			"resoluciones":[{"punto_id":"i1","resumen":"aprobado","votos_favor":"5","votos_contra":"x","abstenciones":"1"}]
		}`)
		req := requestWithPrincipal(httptest.NewRequest(http.MethodPut, "/api/sesiones/ses-1/acta", body))
		req = mux.SetURLVars(req, map[string]string{"id": "ses-1"})
		recorder := httptest.NewRecorder()

		handler.Save(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if len(captured.Resolutions) != 1 {
			t.Fatalf("expected 1 resolution, got %d", len(captured.Resolutions))
		}
		// The handler does not coerce votes; the service owns that rule.
		if captured.Resolutions[0].VotesAgainst != "x" {
			t.Fatalf("expected raw vote string, got %q", captured.Resolutions[0].VotesAgainst)
		}
	})

	t.Run("streams the acta PDF as an attachment", func(t *testing.T) {
		t.Parallel()

		service := &stubMinutesService{
			pdfFn: func(_ context.Context, sessionID string) (document.File, error) {
				return document.File{Name: "acta-" + sessionID + ".pdf", Bytes: []byte("%PDF-1.4")}, nil
			},
		}
		handler := NewActaHandler(service, nil, nil, nil, nil, testLogger())

		req := requestWithPrincipal(httptest.NewRequest(http.MethodGet, "/api/sesiones/ses-1/acta.pdf", nil))
		req = mux.SetURLVars(req, map[string]string{"id": "ses-1"})
		recorder := httptest.NewRecorder()

		handler.ActaPDF(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if got := recorder.Header().Get("Content-Type"); got != "application/pdf" {
			t.Fatalf("expected application/pdf, got %q", got)
		}
		if !strings.Contains(recorder.Header().Get("Content-Disposition"), "acta-ses-1.pdf") {
			t.Fatalf("expected filename in disposition, got %q", recorder.Header().Get("Content-Disposition"))
		}
		if recorder.Body.String() != "%PDF-1.4" {
			t.Fatalf("unexpected body %q", recorder.Body.String())
		}
	})

	t.Run("distributes the saved acta to board and invitees", func(t *testing.T) {
		t.Parallel()

		service := &stubMinutesService{
			saveFn: func(_ context.Context, params application.SaveMinutesParams) (application.Minutes, error) {
				return application.Minutes{ID: "acta-1", SessionID: params.SessionID}, nil
			},
			pdfFn: func(_ context.Context, sessionID string) (document.File, error) {
				return document.File{Name: "acta-" + sessionID + ".pdf", Bytes: []byte("%PDF"), Base64: "JVBERg=="}, nil
			},
		}
		sessions := &stubSessionService{
			getFn: func(_ context.Context, id string) (application.Session, error) {
				return application.Session{
					ID:   id,
					Date: "2025-06-10",
					Time: "10:00",
					Invitees: []application.Invitee{
						{Name: "Ana", Email: "ana@example.com"},
						{Name: "Beto", Email: "beto@example.com"},
					},
				}, nil
			},
		}
		mailer := &recordingMailer{}
		mailbox := &stubMailbox{}
		// The board list repeats Ana, so she gets a single copy.
		handler := NewActaHandler(service, sessions, stubMembers{emails: []string{"junta@example.com", "ana@example.com"}}, notify.NewDispatcher(mailer, testLogger()), mailbox, testLogger())

		req := requestWithPrincipal(httptest.NewRequest(http.MethodPut, "/api/sesiones/ses-1/acta", strings.NewReader(`{"contenido":"acta final"}`)))
		req = mux.SetURLVars(req, map[string]string{"id": "ses-1"})
		recorder := httptest.NewRecorder()

		handler.Save(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if len(mailer.sent) != 3 {
			t.Fatalf("expected 3 deduplicated notices, got %d", len(mailer.sent))
		}
		for _, msg := range mailer.sent {
			if msg.Subject != "Acta: sesión del 2025-06-10" {
				t.Fatalf("unexpected subject %q", msg.Subject)
			}
			if msg.Attachment.Name != "acta-ses-1.pdf" {
				t.Fatalf("expected acta attachment, got %+v", msg.Attachment)
			}
		}
		if len(mailbox.delivered) != 1 || !strings.Contains(mailbox.delivered[0], "sent to 3/3") {
			t.Fatalf("expected dispatch report in mailbox, got %v", mailbox.delivered)
		}

		var resp saveActaResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Minutes.ID != "acta-1" {
			t.Fatalf("unexpected acta id %q", resp.Minutes.ID)
		}
		if !strings.Contains(resp.Dispatch, "sent to 3/3") {
			t.Fatalf("expected dispatch summary, got %q", resp.Dispatch)
		}
	})
}

type stubMailboxService struct {
	notifications []application.Notification
	markedRead    []string
}

func (s *stubMailboxService) List(context.Context, application.Principal) ([]application.Notification, error) {
	return s.notifications, nil
}

func (s *stubMailboxService) MarkRead(_ context.Context, _ application.Principal, id string) error {
	if id == "missing" {
		return application.ErrNotFound
	}
	s.markedRead = append(s.markedRead, id)
	return nil
}

func (s *stubMailboxService) Delete(context.Context, application.Principal, string) error {
	return nil
}

func TestMailboxHandler(t *testing.T) {
	t.Parallel()

	t.Run("lists notifications for the principal", func(t *testing.T) {
		t.Parallel()

		service := &stubMailboxService{
			notifications: []application.Notification{
				{ID: "n-2", Subject: "Convocatoria enviada", CreatedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
				{ID: "n-1", Subject: "Bienvenido", Read: true, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
			},
		}
		handler := NewMailboxHandler(service, nil, testLogger())

		req := requestWithPrincipal(httptest.NewRequest(http.MethodGet, "/api/notificaciones/buzon", nil))
		recorder := httptest.NewRecorder()

		handler.List(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		var dtos []notificationDTO
		if err := json.NewDecoder(recorder.Body).Decode(&dtos); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(dtos) != 2 || dtos[0].ID != "n-2" || !dtos[1].Read {
			t.Fatalf("unexpected notifications: %+v", dtos)
		}
	})

	t.Run("unknown notification maps to 404", func(t *testing.T) {
		t.Parallel()

		handler := NewMailboxHandler(&stubMailboxService{}, nil, testLogger())

		req := requestWithPrincipal(httptest.NewRequest(http.MethodPut, "/api/notificaciones/buzon/missing/leido", nil))
		req = mux.SetURLVars(req, map[string]string{"id": "missing"})
		recorder := httptest.NewRecorder()

		handler.MarkRead(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
	})
}
