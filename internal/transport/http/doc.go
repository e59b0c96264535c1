// Package http implements the HTTP handlers of the sensor service. Handlers
// stay thin: they parse and validate the request, call a service and render
// the result.
//
// # Routes
//
//	POST   /api/records             multipart upload (file, optional strict)
//	GET    /api/records             accumulated records
//	GET    /api/records/latest      most recent successful upload
//	GET    /api/records/{filename}  one record
//	DELETE /api/records/{filename}  remove a record
//	GET    /api/series?metric=      one metric over time
//	POST   /api/classify            column classification of an upload
//	GET    /api/export?format=      csv or xlsx summary download
//	GET    /api/health[/ready|/live]
//	GET    /api/version
//	GET    /metrics                 Prometheus
//
// # Errors
//
// Every failure is rendered by apierrors.ErrorHandler as RFC 7807 Problem
// Details, for example:
//
//	{
//	    "type": "/errors/data/duplicate-file",
//	    "title": "Duplicate File",
//	    "status": 409,
//	    "detail": "2024-03-05-Data.xlsx: file already processed",
//	    "instance": "/api/records",
//	    "trace_id": "..."
//	}
package http
