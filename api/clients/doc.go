/*
Package clients provides an HTTP client for the storage item upload service.

	c := &clients.UploadClient{ServerAddr: "http://127.0.0.1:8080"}

	item, err := c.Upload(ctx, &api.UploadRequest{
		FileName:    "photo.png",
		ContentType: "image/png",
		Data:        f,
	})

	ref, err := c.Reference(ctx, "image", api.Reference{Storage: "cdn", Path: "a/b.png"})

Failed requests return an *UploadError carrying the status code and the pipeline
stage reported by the server. When a post-save hook fails the item was already
stored, and both the item and the error are returned.
*/
package clients
