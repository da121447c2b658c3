package history

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/option"
)

func failingSink(err error) Sink {
	return SinkFunc(func(ctx context.Context, rec Record) (Receipt, error) {
		return Receipt{}, err
	})
}

func TestFallback_RemoteSucceeds(t *testing.T) {
	local, err := NewJSONSink(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	remote := SinkFunc(func(ctx context.Context, rec Record) (Receipt, error) {
		return Receipt{ID: "remote-" + rec.ID}, nil
	})

	receipt, err := NewFallback(remote, local).Append(context.Background(), Record{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, Receipt{ID: "remote-x"}, receipt)
	assert.Empty(t, listed(t, local))
}

func TestFallback_RemoteFailsUsesLocal(t *testing.T) {
	local, err := NewJSONSink(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	receipt, err := NewFallback(failingSink(errors.New("offline")), local).
		Append(context.Background(), Record{ID: "x"})
	require.NoError(t, err)
	assert.True(t, receipt.Local)
	assert.Len(t, listed(t, local), 1)
}

func TestFallback_NoRemoteGoesStraightToLocal(t *testing.T) {
	local, err := NewJSONSink(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	receipt, err := NewFallback(nil, local).Append(context.Background(), Record{ID: "x"})
	require.NoError(t, err)
	assert.True(t, receipt.Local)
}

func TestFallback_BothFail(t *testing.T) {
	remoteErr := errors.New("offline")
	localErr := errors.New("disk full")

	_, err := NewFallback(failingSink(remoteErr), failingSink(localErr)).
		Append(context.Background(), Record{ID: "x"})

	var fbErr *FallbackError
	require.ErrorAs(t, err, &fbErr)
	assert.Equal(t, remoteErr, fbErr.Remote)
	assert.ErrorIs(t, err, localErr)
	assert.Contains(t, err.Error(), "offline")
}

func TestFallback_NothingConfigured(t *testing.T) {
	_, err := NewFallback(nil, nil).Append(context.Background(), Record{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRecorder_DoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	sink := SinkFunc(func(ctx context.Context, rec Record) (Receipt, error) {
		<-release
		return Receipt{ID: rec.ID}, nil
	})

	var mu sync.Mutex
	var saved []string
	r := NewRecorder(sink, nil)
	r.OnSaved = func(rec Record, receipt Receipt, err error) {
		mu.Lock()
		saved = append(saved, receipt.ID)
		mu.Unlock()
	}

	done := make(chan struct{})
	go func() {
		r.Record(Record{ID: "a"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a slow sink")
	}

	close(release)
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a"}, saved)
}

func TestRecorder_FailureIsReportedNotRaised(t *testing.T) {
	var gotErr error
	r := NewRecorder(failingSink(errors.New("boom")), nil)
	r.OnSaved = func(rec Record, receipt Receipt, err error) { gotErr = err }

	r.Record(Record{ID: "a"})
	r.Wait()

	assert.EqualError(t, gotErr, "boom")
}

func TestRecorder_Timeout(t *testing.T) {
	sink := SinkFunc(func(ctx context.Context, rec Record) (Receipt, error) {
		<-ctx.Done()
		return Receipt{}, ctx.Err()
	})

	var gotErr error
	r := NewRecorder(sink, nil)
	r.SetTimeout(20 * time.Millisecond)
	r.OnSaved = func(rec Record, receipt Receipt, err error) { gotErr = err }

	r.Record(Record{ID: "a"})
	r.Wait()

	assert.ErrorIs(t, gotErr, context.DeadlineExceeded)
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.Record(Record{})
	r.Wait()

	NewRecorder(nil, nil).Record(Record{})
}

func TestToDocument(t *testing.T) {
	when := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	doc := toDocument(Record{ID: "x", When: when, RightEye: "6/6", LeftEye: "6/60", RightLogMAR: 0.1, LeftLogMAR: 1.0})

	assert.Equal(t, "2026-05-04T03:02:01Z", doc.Fields["when"].TimestampValue)
	assert.Equal(t, "6/6", doc.Fields["rightEye"].StringValue)
	assert.Equal(t, "6/60", doc.Fields["leftEye"].StringValue)
	assert.Equal(t, 0.1, doc.Fields["rightLogmar"].DoubleValue)
	assert.Equal(t, 1.0, doc.Fields["leftLogmar"].DoubleValue)

	zero := toDocument(Record{RightLogMAR: 0})
	data, err := json.Marshal(zero.Fields["rightLogmar"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"doubleValue": 0}`, string(data))
}

func TestFirestoreSink_Append(t *testing.T) {
	var gotPath, gotDocID string
	var gotDoc firestore.Document

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDocID = r.URL.Query().Get("documentId")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotDoc)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"name": "projects/demo/databases/(default)/documents/visionTests/rec-1"}`)
	}))
	defer srv.Close()

	svc, err := firestore.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	sink := newFirestoreSink(svc, "demo", "(default)", DefaultCollection)
	receipt, err := sink.Append(context.Background(), Record{ID: "rec-1", RightEye: "6/9", LeftEye: "6/12", RightLogMAR: 0.2, LeftLogMAR: 0.3})
	require.NoError(t, err)

	assert.Equal(t, Receipt{ID: "rec-1"}, receipt)
	assert.True(t, strings.HasSuffix(gotPath, "/documents/visionTests"), gotPath)
	assert.Contains(t, gotPath, "projects/demo/databases/")
	assert.Equal(t, "rec-1", gotDocID)
	assert.Equal(t, "6/9", gotDoc.Fields["rightEye"].StringValue)
	assert.Equal(t, 0.3, gotDoc.Fields["leftLogmar"].DoubleValue)
}

func TestFirestoreSink_ServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 503, "message": "unavailable"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc, err := firestore.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	local, err := NewJSONSink(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	remote := newFirestoreSink(svc, "demo", "(default)", DefaultCollection)
	receipt, err := NewFallback(remote, local).Append(context.Background(), Record{ID: "rec-2", RightEye: "6/6", LeftEye: "6/6"})
	require.NoError(t, err)
	assert.True(t, receipt.Local)
	assert.Len(t, listed(t, local), 1)
}

func TestNewFirestoreSink_RequiresProject(t *testing.T) {
	_, err := NewFirestoreSink(context.Background(), FirestoreConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
