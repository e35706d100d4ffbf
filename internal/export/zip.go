/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"fmt"
	"os"
	"time"

	"gopdfreader/internal/library"
)

// Names inside the zip bundle.
const (
	ZipLibraryName = "library.json"
	ZipThumbDir    = "thumbnails/"
)

// LibraryZip bundles library.json and thumbnails/<id>.png.
func LibraryZip(entries []library.Entry, outPath string, thumbs ThumbSource) (err error) {
	data, err := indentedJSON(entries)
	if err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(f)
	defer func() {
		if cerr := zw.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := addZipFile(zw, ZipLibraryName, data); err != nil {
		return err
	}
	if thumbs == nil {
		return nil
	}
	for _, e := range entries {
		if png := thumbs(e.ID); png != nil {
			if err := addZipFile(zw, fmt.Sprintf("%s%d.png", ZipThumbDir, e.ID), png); err != nil {
				return err
			}
		}
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
