// Package http provides HTTP handlers and middleware for the console API.
//
// The router exposes the following endpoints under /api:
//   - POST /auth/login: issues a session token. Body: {"correo","contrasena"}.
//     Response: {"token","expira_en","usuario"} with the token also surfaced
//     via the `X-Session-Token` header and a `session_token` cookie.
//   - POST /auth/logout: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 and clears the cookie.
//   - POST /usuarios, PUT /usuarios/contrasena, PUT /usuarios/perfil: account
//     registration, password change, and profile updates.
//   - POST /auth/restablecer, PUT /auth/restablecer: password recovery
//     request and confirmation. The request variant always answers 202 so the
//     endpoint cannot be used to enumerate registered addresses.
//   - GET/POST /sesiones, GET /sesiones/{id}: session scheduling endpoints
//     exchanging the `sessionDTO` payload defined in session_handler.go.
//     Creating a session may dispatch the convocation notices immediately,
//     per the request's "notificaciones" settings.
//   - GET/PUT/DELETE /sesiones/borrador: the caller's in-progress convocation
//     draft. Deleting a dirty draft requires ?confirmar=true; without it the
//     endpoint answers 409 with error_code DRAFT_DIRTY.
//   - POST /sesiones/{id}/asistencia, POST /sesiones/{id}/cerrar: attendance
//     registration (with quorum report) and session closing.
//   - GET/PUT /sesiones/{id}/acta, GET /sesiones/{id}/acta/resoluciones:
//     minutes drafting endpoints exchanging the `minutesDTO` payload defined
//     in acta_handler.go. The resoluciones variant seeds one empty resolution
//     per agenda item.
//   - GET /sesiones/{id}/acta.pdf, GET /sesiones/{id}/convocatoria.pdf:
//     generated documents streamed as application/pdf attachments.
//   - GET /junta-directiva: the read-only board member directory.
//   - GET /notificaciones/buzon, PUT /notificaciones/buzon/{id}/leido,
//     DELETE /notificaciones/buzon/{id}: the in-app mailbox.
//   - GET /notificaciones/ws: websocket subscription for live mailbox pushes.
//     Browsers cannot set the Authorization header here, so the session token
//     is also accepted as a `token` query parameter.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
