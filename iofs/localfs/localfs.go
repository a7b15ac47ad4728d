// Package localfs backs iofs.FileIO with the host filesystem, for tests and
// single-node dev runs where no object store is configured.
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

package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nimtable/bergloom-go/cmn"
)

type FileIO struct {
	Root string
}

func New(root string) *FileIO { return &FileIO{Root: root} }

func (f *FileIO) resolve(uri string) string {
	p := strings.TrimPrefix(uri, "file://")
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(f.Root, p)
}

func (f *FileIO) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	file, err := os.Open(f.resolve(uri))
	if err != nil {
		return nil, cmn.NewErrIO(uri, err)
	}
	return file, nil
}

func (f *FileIO) Create(_ context.Context, uri string) (io.WriteCloser, error) {
	path := f.resolve(uri)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, cmn.NewErrIO(uri, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, cmn.NewErrIO(uri, err)
	}
	return file, nil
}

func (f *FileIO) Delete(_ context.Context, uri string) error {
	if err := os.Remove(f.resolve(uri)); err != nil && !os.IsNotExist(err) {
		return cmn.NewErrIO(uri, err)
	}
	return nil
}
