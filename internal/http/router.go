package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig bundles the handlers and middleware the router mounts.
type RouterConfig struct {
	Auth     *AuthHandler
	Sessions *SessionHandler
	Drafts   *DraftHandler
	Actas    *ActaHandler
	Members  *MemberHandler
	Mailbox  *MailboxHandler

	Validator SessionValidator
	Logger    *slog.Logger
}

// NewRouter assembles the API routes. Login, registration, and password
// recovery are public; everything else requires a valid session token.
func NewRouter(cfg RouterConfig) *mux.Router {
	root := mux.NewRouter()
	root.Use(RequestLogger(cfg.Logger))

	api := root.PathPrefix("/api").Subrouter()

	public := api.NewRoute().Subrouter()
	public.HandleFunc("/auth/login", cfg.Auth.Login).Methods(http.MethodPost)
	public.HandleFunc("/usuarios", cfg.Auth.Register).Methods(http.MethodPost)
	public.HandleFunc("/auth/restablecer", cfg.Auth.RequestReset).Methods(http.MethodPost)
	public.HandleFunc("/auth/restablecer", cfg.Auth.ConfirmReset).Methods(http.MethodPut)

	protected := api.NewRoute().Subrouter()
	protected.Use(RequireSession(cfg.Validator, cfg.Logger))

	protected.HandleFunc("/auth/logout", cfg.Auth.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/usuarios/contrasena", cfg.Auth.ChangePassword).Methods(http.MethodPut)
	protected.HandleFunc("/usuarios/perfil", cfg.Auth.UpdateProfile).Methods(http.MethodPut)

	protected.HandleFunc("/sesiones", cfg.Sessions.List).Methods(http.MethodGet)
	protected.HandleFunc("/sesiones", cfg.Sessions.Create).Methods(http.MethodPost)
	// The draft routes must precede /sesiones/{id} so "borrador" is not
	// captured as a session id.
	protected.HandleFunc("/sesiones/borrador", cfg.Drafts.Get).Methods(http.MethodGet)
	protected.HandleFunc("/sesiones/borrador", cfg.Drafts.Put).Methods(http.MethodPut)
	protected.HandleFunc("/sesiones/borrador", cfg.Drafts.Discard).Methods(http.MethodDelete)
	protected.HandleFunc("/sesiones/{id}", cfg.Sessions.Get).Methods(http.MethodGet)
	protected.HandleFunc("/sesiones/{id}/asistencia", cfg.Sessions.RegisterAttendance).Methods(http.MethodPost)
	protected.HandleFunc("/sesiones/{id}/cerrar", cfg.Sessions.Close).Methods(http.MethodPost)

	protected.HandleFunc("/sesiones/{id}/acta", cfg.Actas.Get).Methods(http.MethodGet)
	protected.HandleFunc("/sesiones/{id}/acta", cfg.Actas.Save).Methods(http.MethodPut)
	protected.HandleFunc("/sesiones/{id}/acta/resoluciones", cfg.Actas.Seed).Methods(http.MethodGet)
	protected.HandleFunc("/sesiones/{id}/acta.pdf", cfg.Actas.ActaPDF).Methods(http.MethodGet)
	protected.HandleFunc("/sesiones/{id}/convocatoria.pdf", cfg.Actas.ConvocationPDF).Methods(http.MethodGet)

	protected.HandleFunc("/junta-directiva", cfg.Members.List).Methods(http.MethodGet)

	protected.HandleFunc("/notificaciones/buzon", cfg.Mailbox.List).Methods(http.MethodGet)
	protected.HandleFunc("/notificaciones/buzon/{id}/leido", cfg.Mailbox.MarkRead).Methods(http.MethodPut)
	protected.HandleFunc("/notificaciones/buzon/{id}", cfg.Mailbox.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/notificaciones/ws", cfg.Mailbox.Subscribe).Methods(http.MethodGet)

	return root
}
