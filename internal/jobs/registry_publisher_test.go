package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sympep-tracker/internal/database/dbtest"
	"sympep-tracker/internal/models"
	"sympep-tracker/internal/repository"
	"sympep-tracker/internal/services"
)

type memoryWriter struct {
	docs [][]byte
	err  error
}

func (w *memoryWriter) Write(doc []byte) error {
	if w.err != nil {
		return w.err
	}
	w.docs = append(w.docs, doc)
	return nil
}

func setupPublisher(t *testing.T, writer *memoryWriter) (*RegistryPublisher, *services.ProposalService, *services.NumberingService, *repository.Repository) {
	t.Helper()

	repo := repository.NewRepository(dbtest.Open(t))
	proposals := services.NewProposalService(repo)
	return NewRegistryPublisher(repo, writer, time.Minute, 10), proposals, services.NewNumberingService(proposals), repo
}

func assignNew(t *testing.T, proposals *services.ProposalService, numbering *services.NumberingService, title string) {
	t.Helper()
	ctx := context.Background()

	p, err := proposals.Create(ctx, title, models.ProposalTypeInformational, time.Now(), []string{"alice"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	decision := models.Decision{Attribution: models.Attribution{Actor: "editor"}, Approved: true}
	if _, err := numbering.Assign(ctx, p.Handle, decision); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
}

func TestPublishOnce(t *testing.T) {
	writer := &memoryWriter{}
	publisher, proposals, numbering, _ := setupPublisher(t, writer)
	ctx := context.Background()

	n, err := publisher.PublishOnce(ctx)
	if err != nil {
		t.Fatalf("PublishOnce failed: %v", err)
	}
	if n != 0 || len(writer.docs) != 0 {
		t.Fatalf("expected nothing to publish, got %d", n)
	}

	assignNew(t, proposals, numbering, "Indexed one")
	assignNew(t, proposals, numbering, "Indexed two")

	n, err = publisher.PublishOnce(ctx)
	if err != nil {
		t.Fatalf("PublishOnce failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 acknowledged notifications, got %d", n)
	}
	if len(writer.docs) != 1 {
		t.Fatalf("expected one write, got %d", len(writer.docs))
	}
	doc := string(writer.docs[0])
	if !strings.Contains(doc, "SymPEP-0001 | Indexed one") || !strings.Contains(doc, "SymPEP-0002 | Indexed two") {
		t.Errorf("unexpected registry document:\n%s", doc)
	}

	n, err = publisher.PublishOnce(ctx)
	if err != nil {
		t.Fatalf("PublishOnce failed: %v", err)
	}
	if n != 0 || len(writer.docs) != 1 {
		t.Errorf("expected no republish once acknowledged, got %d", n)
	}
}

func TestPublishOnceRetriesAfterFailure(t *testing.T) {
	writer := &memoryWriter{err: errors.New("registry unavailable")}
	publisher, proposals, numbering, repo := setupPublisher(t, writer)
	ctx := context.Background()

	assignNew(t, proposals, numbering, "Retry me")

	if _, err := publisher.PublishOnce(ctx); err == nil {
		t.Fatal("expected write failure")
	}

	pending, err := repo.PendingRegistryNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("PendingRegistryNotifications failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "registry unavailable" {
		t.Fatalf("expected notification to stay pending with one failed attempt, got %+v", pending)
	}

	writer.err = nil
	n, err := publisher.PublishOnce(ctx)
	if err != nil {
		t.Fatalf("PublishOnce failed: %v", err)
	}
	if n != 1 || len(writer.docs) != 1 {
		t.Errorf("expected the retry to publish, got %d", n)
	}
}

func TestRegistryPublisherStop(t *testing.T) {
	publisher, _, _, _ := setupPublisher(t, &memoryWriter{})
	publisher.interval = 10 * time.Millisecond

	done := make(chan struct{})
	go func() {
		publisher.Start()
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	publisher.Stop()

	// Stop only returns once the loop has exited
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}

	publisher.Stop()
}

// blockingWriter holds every Write until release is closed
type blockingWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(doc []byte) error {
	w.once.Do(func() { close(w.entered) })
	<-w.release
	return nil
}

func TestRegistryPublisherStopWaitsForPublish(t *testing.T) {
	_, proposals, numbering, repo := setupPublisher(t, &memoryWriter{})
	assignNew(t, proposals, numbering, "In flight")

	writer := &blockingWriter{entered: make(chan struct{}), release: make(chan struct{})}
	publisher := NewRegistryPublisher(repo, writer, 10*time.Millisecond, 10)

	go publisher.Start()

	select {
	case <-writer.entered:
	case <-time.After(time.Second):
		t.Fatal("publisher never wrote")
	}

	stopped := make(chan struct{})
	go func() {
		publisher.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a publish was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(writer.release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the publish finished")
	}

	pending, err := repo.PendingRegistryNotifications(context.Background(), 10)
	if err != nil {
		t.Fatalf("PendingRegistryNotifications failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected the in-flight publish to be acknowledged, %d pending", len(pending))
	}
}

func TestRegistryPublisherStopBeforeStart(t *testing.T) {
	publisher, _, _, _ := setupPublisher(t, &memoryWriter{})
	publisher.Stop()

	done := make(chan struct{})
	go func() {
		publisher.Start()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start ran after Stop")
	}
}
