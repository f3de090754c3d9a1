/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openPGForTest(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("SCW_PG_DSN")
	if dsn == "" {
		t.Skip("SCW_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := OpenPG(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPGStoreRoundTrip(t *testing.T) {
	st := openPGForTest(t)
	ctx := context.Background()
	name := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = st.Delete(context.Background(), name) })

	m := sampleManifest()
	v1, err := st.Put(ctx, name, m)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	v2, err := st.Put(ctx, name, m)
	if err != nil || v2 != v1+1 {
		t.Fatalf("second Put should bump version: %d -> %d (%v)", v1, v2, err)
	}
	got, ver, err := st.Get(ctx, name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ver != v2 || len(got.Sequence) != 2 || len(got.History) != 1 {
		t.Fatalf("unexpected manifest v%d %+v", ver, got)
	}
	res, err := st.Search(ctx, name, SearchQuery{Text: "morning"})
	if err != nil || len(res) != 1 || res[0].Speaker != "Rosetta" {
		t.Fatalf("search: %v %+v", err, res)
	}
}

func TestPGStoreMissingWorkspace(t *testing.T) {
	st := openPGForTest(t)
	_, _, err := st.Get(context.Background(), "missing-"+uuid.NewString())
	if !errors.Is(err, ErrWorkspaceNotFound) {
		t.Fatalf("expected ErrWorkspaceNotFound, got %v", err)
	}
}

func TestOpenPGRequiresDSN(t *testing.T) {
	if _, err := OpenPG(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
