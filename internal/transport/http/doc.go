// Package http implements the JSON API of the cvscan server. Handlers are
// thin: they parse and validate the request, call a service and render the
// result. Every failure is passed to the shared ErrorHandler, which answers
// with RFC 7807 problem details.
//
// # Routes
//
//	PUT    /api/session/scan-rates   declare scan rates ("5, 10, 20")
//	GET    /api/session              scan rates, uploads and missing rates
//	DELETE /api/session              clear every upload, dataset and report
//	GET    /api/datasets             stored recordings
//	POST   /api/datasets/{rate}      multipart upload, field "file"
//	DELETE /api/datasets/{rate}      remove one recording
//	GET    /api/curves?view=         second cycles of all scan rates
//	GET    /api/curves/{rate}?view=  second cycle of one scan rate
//	GET    /api/curves/{rate}/summary
//	GET    /api/fits/{rate}?half=&degree=
//	POST   /api/reports/{rate}       write CSV or xlsx reports
//	POST   /api/logs                 front end log forwarding
//	GET    /api/health[/ready|/live|/detailed], /api/stats, /api/version
//
// # Errors
//
// Service sentinels are translated by translateError: undeclared scan
// rates and missing recordings become 404, an incomplete session 409 and
// invalid parameters 400. Typed core errors such as an incomplete
// recording reach the ErrorHandler unchanged and become 422.
package http
