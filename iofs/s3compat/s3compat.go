// Package s3compat backs iofs.FileIO with any S3-compatible endpoint via
// minio-go — the path a MinIO-fronted data lake or a non-AWS S3 clone takes.
// Grounded on bunbase's platform/internal/storage/client.go (minio.New with
// static V4 credentials, PutObject/GetObject/RemoveObject), generalized from
// its one-bucket-per-project convention to URIs of the form
// s3compat://bucket/key.
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

package s3compat

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nimtable/bergloom-go/cmn"
)

type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

type FileIO struct {
	mc *minio.Client
}

func New(cfg Config) (*FileIO, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, cmn.NewErrIO(cfg.Endpoint, err)
	}
	return &FileIO{mc: mc}, nil
}

func splitURI(uri string) (bucket, key string) {
	p := uri
	for _, prefix := range []string{"s3compat://", "s3://"} {
		p = strings.TrimPrefix(p, prefix)
	}
	idx := strings.IndexByte(p, '/')
	if idx < 0 {
		return p, ""
	}
	return p[:idx], p[idx+1:]
}

func (f *FileIO) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key := splitURI(uri)
	obj, err := f.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, cmn.NewErrIO(uri, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, cmn.NewErrIO(uri, err)
	}
	return obj, nil
}

func (f *FileIO) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	bucket, key := splitURI(uri)
	if err := f.ensureBucket(ctx, bucket); err != nil {
		return nil, err
	}
	return newPutWriter(ctx, f.mc, bucket, key), nil
}

func (f *FileIO) Delete(ctx context.Context, uri string) error {
	bucket, key := splitURI(uri)
	if err := f.mc.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return cmn.NewErrIO(uri, err)
	}
	return nil
}

func (f *FileIO) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := f.mc.BucketExists(ctx, bucket)
	if err != nil {
		return cmn.NewErrIO(bucket, err)
	}
	if exists {
		return nil
	}
	if err := f.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return cmn.NewErrIO(bucket, err)
	}
	return nil
}

// putWriter buffers writes in memory and uploads once on Close, since
// minio-go's PutObject takes a single io.Reader rather than a streaming
// write API.
type putWriter struct {
	ctx    context.Context
	mc     *minio.Client
	bucket string
	key    string
	buf    []byte
}

func newPutWriter(ctx context.Context, mc *minio.Client, bucket, key string) *putWriter {
	return &putWriter{ctx: ctx, mc: mc, bucket: bucket, key: key}
}

func (w *putWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *putWriter) Close() error {
	reader := &sliceReader{data: w.buf}
	_, err := w.mc.PutObject(w.ctx, w.bucket, w.key, reader, int64(len(w.buf)), minio.PutObjectOptions{})
	if err != nil {
		return cmn.NewErrIO(w.bucket+"/"+w.key, err)
	}
	return nil
}

type sliceReader struct {
	data []byte
	pos  int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
