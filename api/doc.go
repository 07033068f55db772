/*
Package api defines the wire types of the storage item upload service.

The upload endpoint accepts either a multipart file or a JSON reference and
answers with an Item:

	{"storage":"local","path":"01/9f/3a.../photo.png","contentType":"image/png"}

Failures are answered with an ErrorResponse. The clients subpackage implements
UploadProvider over HTTP.
*/
package api
