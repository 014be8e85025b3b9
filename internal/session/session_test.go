package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/formlens/internal/form"
	"github.com/dgallion1/formlens/internal/geometry"
	"github.com/dgallion1/formlens/internal/raster"
)

func testDocument(names ...string) Document {
	dims := []geometry.PageDims{{
		OriginalWidth: 100, OriginalHeight: 100,
		RenderWidth: 200, RenderHeight: 200,
		ScaleX: 2, ScaleY: 2,
	}}
	var fields []form.Field
	var placements []geometry.Placement
	for i, n := range names {
		fields = append(fields, form.Field{Name: n, Value: "v" + n, Type: form.TypeText})
		placements = append(placements, geometry.Placement{
			Name: n,
			Abs:  &geometry.Box{X: float64(i * 20), Y: 0, Width: 10, Height: 10},
		})
	}
	return Document{
		Pages:  []raster.Page{{Index: 0, Dims: dims[0]}},
		Fields: fields,
		Layout: geometry.BuildLayout(placements, dims),
	}
}

func TestSession_BeginLoadRejectsOverlap(t *testing.T) {
	s := New("s1")
	if err := s.BeginLoad("a.pdf"); err != nil {
		t.Fatalf("expected first load to start, got %v", err)
	}
	if err := s.BeginLoad("b.pdf"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for overlapping upload, got %v", err)
	}
	s.Commit(testDocument("name"))
	if err := s.BeginLoad("b.pdf"); err != nil {
		t.Errorf("expected load to start after commit, got %v", err)
	}
}

func TestSession_CommitReplacesAndClearsSelection(t *testing.T) {
	s := New("s1")
	s.Commit(testDocument("a", "b"))
	if err := s.Focus("b"); err != nil {
		t.Fatalf("focus: %v", err)
	}

	s.Commit(testDocument("c"))
	if !s.Selection().IsNone() {
		t.Errorf("expected selection cleared after commit, got %v", s.Selection())
	}
	fields, layout := s.Fields()
	if len(fields) != 1 || fields[0].Name != "c" {
		t.Errorf("expected only field c, got %+v", fields)
	}
	if _, ok := layout.Lookup("a"); ok {
		t.Error("expected old positions to be gone")
	}
}

func TestSession_FailKeepsPriorState(t *testing.T) {
	s := New("s1")
	s.Commit(testDocument("a"))
	_ = s.BeginLoad("bad.pdf")
	s.Fail(errors.New("render document: not a pdf"))

	snap := s.Snapshot(nil)
	if snap.Loading {
		t.Error("expected loading cleared after failure")
	}
	if snap.Error == "" {
		t.Error("expected error recorded")
	}
	if len(snap.Fields) != 1 || snap.Fields[0].Name != "a" {
		t.Errorf("expected prior fields kept, got %+v", snap.Fields)
	}
}

func TestSession_ClickSelectsAndClears(t *testing.T) {
	s := New("s1")
	s.Commit(testDocument("a", "b"))

	// b sits at x=40..60 in render pixels
	sel := s.Click(0, 40, 10)
	if !sel.Is("b") {
		t.Errorf("expected b selected, got %v", sel)
	}
	sel = s.Click(0, 150, 150)
	if !sel.IsNone() {
		t.Errorf("expected miss to clear selection, got %v", sel)
	}
}

func TestSession_FocusUnknownField(t *testing.T) {
	s := New("s1")
	s.Commit(testDocument("a"))
	if err := s.Focus("zzz"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	_ = s.Focus("a")
	s.Blur()
	if !s.Selection().IsNone() {
		t.Error("expected blur to clear selection")
	}
}

func TestSession_SnapshotFieldViews(t *testing.T) {
	s := New("s1")
	doc := testDocument("a")
	doc.Fields = append(doc.Fields,
		form.Field{Name: "dob", Value: "25/12/2024", Type: form.TypeDate},
		form.Field{Name: "ok", Value: "checked", Type: form.TypeCheckbox},
	)
	s.Commit(doc)
	_ = s.Focus("a")

	snap := s.Snapshot(func(p int) string { return "/pages/0.png" })
	if len(snap.Pages) != 1 || snap.Pages[0].Image != "/pages/0.png" {
		t.Errorf("expected page link, got %+v", snap.Pages)
	}
	byName := map[string]FieldView{}
	for _, f := range snap.Fields {
		byName[f.Name] = f
	}
	if !byName["a"].Highlighted || byName["a"].Position == nil {
		t.Errorf("expected a highlighted with a position, got %+v", byName["a"])
	}
	if byName["dob"].ControlValue != "2024-12-25" || byName["dob"].Control != form.ControlDate {
		t.Errorf("expected date control value, got %+v", byName["dob"])
	}
	if !byName["ok"].Checked {
		t.Error("expected checkbox checked")
	}
	if byName["dob"].Position != nil {
		t.Error("expected no position for unplaced field")
	}
}

func TestSession_EditField(t *testing.T) {
	s := New("s1")
	doc := testDocument()
	doc.Fields = []form.Field{{Name: "dob", Type: form.TypeDate}}
	s.Commit(doc)

	if !s.EditField("dob", "2024-01-31") {
		t.Fatal("expected edit to apply")
	}
	fields, _ := s.Fields()
	if fields[0].Value != "31/01/2024" {
		t.Errorf("expected 31/01/2024, got %q", fields[0].Value)
	}
	if s.SetField("missing", "x") {
		t.Error("expected unknown field to be ignored")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSession_SubmitClearsThenNotifies(t *testing.T) {
	s := New("s1")
	s.Commit(testDocument("a"))
	_ = s.Focus("a")

	if err := s.Submit(20*time.Millisecond, 50*time.Millisecond); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.Submit(20*time.Millisecond, 50*time.Millisecond); !errors.Is(err, ErrSubmitting) {
		t.Errorf("expected ErrSubmitting for concurrent submit, got %v", err)
	}
	if err := s.BeginLoad("x.pdf"); !errors.Is(err, ErrSubmitting) {
		t.Errorf("expected upload blocked while submitting, got %v", err)
	}

	waitFor(t, func() bool { return s.Snapshot(nil).Submitted })
	snap := s.Snapshot(nil)
	if len(snap.Fields) != 0 || len(snap.Pages) != 0 || snap.Submitting {
		t.Errorf("expected cleared state after submit, got %+v", snap)
	}
	if !snap.Selection.IsNone() {
		t.Error("expected selection cleared after submit")
	}

	waitFor(t, func() bool { return !s.Snapshot(nil).Submitted })
}

func TestSession_SubmitWhileLoading(t *testing.T) {
	s := New("s1")
	_ = s.BeginLoad("a.pdf")
	if err := s.Submit(time.Millisecond, time.Millisecond); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
}

func TestSession_ConcurrentClicks(t *testing.T) {
	s := New("s1")
	s.Commit(testDocument("a", "b", "c"))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Click(0, float64(i%60), 5)
			_ = s.Snapshot(nil)
		}(i)
	}
	wg.Wait()
}

func TestStore_CreateGet(t *testing.T) {
	store := NewStore(time.Hour)
	sess := store.Create()
	got, err := store.Get(sess.ID)
	if err != nil {
		t.Fatalf("expected session back, got %v", err)
	}
	if got != sess {
		t.Error("expected same session pointer")
	}
	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !store.Delete(sess.ID) || store.Len() != 0 {
		t.Error("expected delete to remove session")
	}
}

func TestStore_TTLCleanup(t *testing.T) {
	store := NewStore(50 * time.Millisecond)
	old := New("old")
	busy := New("busy")
	_ = busy.BeginLoad("x.pdf")
	store.Put(old)
	store.Put(busy)

	time.Sleep(100 * time.Millisecond)
	fresh := New("new")
	store.Put(fresh)

	if n := store.Cleanup(); n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if _, err := store.Get("old"); err == nil {
		t.Error("expected expired session to be cleaned up")
	}
	if _, err := store.Get("busy"); err != nil {
		t.Error("expected loading session to survive cleanup")
	}
	if _, err := store.Get("new"); err != nil {
		t.Error("expected fresh session to survive cleanup")
	}
}
