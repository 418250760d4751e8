// Package httpapi serves the blogAuth engine over HTTP with a chi router.
//
// Routes:
//
//	POST   /api/auth/register
//	POST   /api/auth/login
//	POST   /api/auth/verify                (bearer)
//	POST   /api/auth/refresh
//	POST   /api/auth/logout
//	GET    /api/auth/verify-email?token=
//	POST   /api/auth/resend-verification
//	GET    /api/auth/me                    (bearer)
//	PUT    /api/auth/profile               (bearer)
//	GET    /api/admin/users                (admin)
//	GET    /api/admin/users/stats          (admin)
//	POST   /api/admin/users                (admin)
//	GET    /api/admin/users/{username}     (admin)
//	PUT    /api/admin/users/{username}/role   (admin)
//	PUT    /api/admin/users/{username}/status (admin)
//	DELETE /api/admin/users/{username}     (admin)
//	GET    /healthz
//	GET    /metrics                        (when a metrics handler is set)
//
// Failures use the envelope {"success":false,"error":"..."}; successes carry
// "success":true next to their payload.
package httpapi
