// Package azureblob backs iofs.FileIO with Azure Blob Storage, grounded
// directly on the teacher's Azure backend (ais/backend/azure.go):
// azblob.NewClientWithSharedKeyCredential for a container-and-blob URL,
// client.DownloadStream for reads, client.UploadStream for writes, and
// client.DeleteBlob for deletes — carried over largely as-is, stripped of
// the LOM/bucket/checksum bookkeeping that has no counterpart here.
/*
 * Copyright 2025 BergLoom
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package azureblob

import (
	"context"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/nimtable/bergloom-go/cmn"
)

type FileIO struct {
	client *azblob.Client
}

func New(serviceURL, accountName, accountKey string) (*FileIO, error) {
	creds, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, cmn.NewErrIO(serviceURL, err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, creds, nil)
	if err != nil {
		return nil, cmn.NewErrIO(serviceURL, err)
	}
	return &FileIO{client: client}, nil
}

func splitURI(uri string) (container, blobName string) {
	p := strings.TrimPrefix(uri, "az://")
	idx := strings.IndexByte(p, '/')
	if idx < 0 {
		return p, ""
	}
	return p[:idx], p[idx+1:]
}

func (f *FileIO) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	container, blobName := splitURI(uri)
	var opts blob.DownloadStreamOptions
	resp, err := f.client.DownloadStream(ctx, container, blobName, &opts)
	if err != nil {
		return nil, cmn.NewErrIO(uri, err)
	}
	return resp.Body, nil
}

func (f *FileIO) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	container, blobName := splitURI(uri)
	return &uploadWriter{ctx: ctx, client: f.client, container: container, blobName: blobName}, nil
}

func (f *FileIO) Delete(ctx context.Context, uri string) error {
	container, blobName := splitURI(uri)
	if _, err := f.client.DeleteBlob(ctx, container, blobName, nil); err != nil {
		return cmn.NewErrIO(uri, err)
	}
	return nil
}

// uploadWriter buffers then uploads once on Close via UploadStream, the way
// the teacher's PutObj does for one object at a time.
type uploadWriter struct {
	ctx       context.Context
	client    *azblob.Client
	container string
	blobName  string
	buf       []byte
}

func (w *uploadWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *uploadWriter) Close() error {
	_, err := w.client.UploadStream(w.ctx, w.container, w.blobName, &byteReader{data: w.buf}, nil)
	if err != nil {
		return cmn.NewErrIO(w.container+"/"+w.blobName, err)
	}
	return nil
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
