package a11y

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a minimal in-test tree. Nodes listed in hang block until
// the test releases them.
type fakeBackend struct {
	mu       sync.Mutex
	snaps    map[string]Snapshot
	parent   map[string]string
	children map[string][]string
	dead     map[string]bool
	hang     map[string]chan struct{}
	actions  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		snaps:    make(map[string]Snapshot),
		parent:   make(map[string]string),
		children: make(map[string][]string),
		dead:     make(map[string]bool),
		hang:     make(map[string]chan struct{}),
	}
}

func h(id string) Handle { return Handle{API: APISimulated, ID: id} }

func (f *fakeBackend) add(parent, id string, snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if snap.Row == 0 && snap.Col == 0 && snap.Role != RoleCell {
		snap.Row, snap.Col = -1, -1
	}
	f.snaps[id] = snap
	if parent != "" {
		f.parent[id] = parent
		f.children[parent] = append(f.children[parent], id)
	}
}

func (f *fakeBackend) Kind() APIKind { return APISimulated }

func (f *fakeBackend) wait(id string) {
	f.mu.Lock()
	ch := f.hang[id]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (f *fakeBackend) Snapshot(ctx context.Context, hd Handle) (Snapshot, error) {
	f.wait(hd.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead[hd.ID] {
		return Snapshot{}, ErrStale
	}
	s, ok := f.snaps[hd.ID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeBackend) Parent(ctx context.Context, hd Handle) (Handle, error) {
	f.wait(hd.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead[hd.ID] {
		return Handle{}, ErrStale
	}
	p, ok := f.parent[hd.ID]
	if !ok {
		return Handle{}, ErrBoundary
	}
	return h(p), nil
}

func (f *fakeBackend) Children(ctx context.Context, hd Handle) ([]Handle, error) {
	f.wait(hd.ID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead[hd.ID] {
		return nil, ErrStale
	}
	var out []Handle
	for _, c := range f.children[hd.ID] {
		out = append(out, h(c))
	}
	return out, nil
}

func (f *fakeBackend) DoDefaultAction(ctx context.Context, hd Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, hd.ID)
	return nil
}

func sampleTree() *fakeBackend {
	f := newFakeBackend()
	f.add("", "doc", Snapshot{Role: RoleDocument, Name: "Page"})
	f.add("doc", "h1", Snapshot{Role: RoleHeading, Name: "Title", Level: 1})
	f.add("doc", "p1", Snapshot{Role: RoleParagraph})
	f.add("p1", "t1", Snapshot{Role: RoleText, Text: "Hello", HasText: true})
	f.add("doc", "table", Snapshot{Role: RoleTable})
	f.add("table", "r0", Snapshot{Role: RoleRow})
	f.add("table", "r1", Snapshot{Role: RoleRow})
	f.add("r0", "c00", Snapshot{Role: RoleCell, Row: 0, Col: 0, Name: "A"})
	f.add("r0", "c01", Snapshot{Role: RoleCell, Row: 0, Col: 1, Name: "B"})
	f.add("r1", "c10", Snapshot{Role: RoleCell, Row: 1, Col: 0, Name: "C"})
	f.add("r1", "c11", Snapshot{Role: RoleCell, Row: 1, Col: 1, Name: "D"})
	return f
}

func TestModel_Resolve(t *testing.T) {
	m := NewModel(sampleTree())

	n, err := m.Resolve(context.Background(), h("h1"))
	require.NoError(t, err)
	assert.Equal(t, RoleHeading, n.Snapshot.Role)
	assert.Equal(t, h("h1"), n.Snapshot.Handle, "snapshot is stamped with the handle")

	cached, ok := m.Cached(h("h1"))
	require.True(t, ok)
	assert.Equal(t, "Title", cached.Name)
}

func TestModel_Resolve_ZeroHandle(t *testing.T) {
	m := NewModel(sampleTree())
	_, err := m.Resolve(context.Background(), Handle{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModel_Resolve_DeadElementIsStale(t *testing.T) {
	f := sampleTree()
	m := NewModel(f)

	_, err := m.Resolve(context.Background(), h("t1"))
	require.NoError(t, err)

	f.mu.Lock()
	f.dead["t1"] = true
	f.mu.Unlock()

	_, err = m.Resolve(context.Background(), h("t1"))
	assert.True(t, IsStale(err))
	_, ok := m.Cached(h("t1"))
	assert.False(t, ok, "stale element is evicted from the cache")
}

func TestModel_Timeout_IsStale(t *testing.T) {
	f := sampleTree()
	release := make(chan struct{})
	f.hang["p1"] = release
	defer close(release)

	var timeouts []string
	m := NewModel(f,
		WithCallTimeout(20*time.Millisecond),
		WithTimeoutHook(func(op string) { timeouts = append(timeouts, op) }),
	)

	start := time.Now()
	_, err := m.Resolve(context.Background(), h("p1"))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.True(t, IsStale(err), "timeouts degrade to stale")
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, []string{"snapshot"}, timeouts)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "snapshot", te.Op)
}

func TestModel_Watchdog_FailsFast(t *testing.T) {
	f := sampleTree()
	release := make(chan struct{})
	f.hang["p1"] = release

	m := NewModel(f, WithCallTimeout(10*time.Millisecond), WithMaxInflight(1))

	_, err := m.Resolve(context.Background(), h("p1"))
	require.True(t, IsTimeout(err))
	assert.Equal(t, 1, m.Inflight(), "abandoned call still running")

	start := time.Now()
	_, err = m.Resolve(context.Background(), h("h1"))
	assert.True(t, IsTimeout(err), "calls fail fast while the watchdog cap is reached")
	assert.Less(t, time.Since(start), 10*time.Millisecond)

	close(release)
	require.Eventually(t, func() bool { return m.Inflight() == 0 }, time.Second, time.Millisecond)

	_, err = m.Resolve(context.Background(), h("h1"))
	assert.NoError(t, err)
}

func TestModel_ParentContextCancelled(t *testing.T) {
	f := sampleTree()
	release := make(chan struct{})
	f.hang["p1"] = release
	defer close(release)

	m := NewModel(f, WithCallTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Resolve(ctx, h("p1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel_Navigate(t *testing.T) {
	tests := []struct {
		name string
		from string
		dir  Direction
		want string
		err  error
	}{
		{"parent", "h1", DirParent, "doc", nil},
		{"parent of root", "doc", DirParent, "", ErrBoundary},
		{"first child", "doc", DirFirstChild, "h1", nil},
		{"last child", "doc", DirLastChild, "table", nil},
		{"no children", "h1", DirFirstChild, "", ErrBoundary},
		{"next sibling", "h1", DirNext, "p1", nil},
		{"previous sibling", "p1", DirPrevious, "h1", nil},
		{"next at end", "table", DirNext, "", ErrBoundary},
		{"cell right", "c00", DirCellRight, "c01", nil},
		{"cell left edge", "c00", DirCellLeft, "", ErrBoundary},
		{"cell down", "c01", DirCellDown, "c11", nil},
		{"cell up", "c10", DirCellUp, "c00", nil},
		{"cell up edge", "c00", DirCellUp, "", ErrBoundary},
		{"cell move outside table", "h1", DirCellRight, "", ErrBoundary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(sampleTree())
			n, err := m.Navigate(context.Background(), h(tt.from), tt.dir)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, h(tt.want), n.Handle)
		})
	}
}

func TestModel_IsAncestor(t *testing.T) {
	m := NewModel(sampleTree())
	ctx := context.Background()

	assert.True(t, m.IsAncestor(ctx, h("doc"), h("t1")))
	assert.True(t, m.IsAncestor(ctx, h("p1"), h("p1")))
	assert.False(t, m.IsAncestor(ctx, h("t1"), h("doc")))
	assert.False(t, m.IsAncestor(ctx, h("h1"), h("t1")))
}

func TestModel_AncestorWithRole(t *testing.T) {
	m := NewModel(sampleTree())
	ctx := context.Background()

	n, err := m.AncestorWithRole(ctx, h("t1"), RoleDocument)
	require.NoError(t, err)
	assert.Equal(t, h("doc"), n.Handle)

	_, err = m.AncestorWithRole(ctx, h("t1"), RoleDialog)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestModel_Activate(t *testing.T) {
	f := sampleTree()
	m := NewModel(f)

	require.NoError(t, m.Activate(context.Background(), h("c00")))
	assert.Equal(t, []string{"c00"}, f.actions)
}

func TestModel_Activate_Unsupported(t *testing.T) {
	var b Backend = struct{ Backend }{sampleTree()}
	m := NewModel(b)
	assert.ErrorIs(t, m.Activate(context.Background(), h("c00")), ErrUnsupported)
}

func TestSameElement(t *testing.T) {
	a := Snapshot{Handle: h("x"), Role: RoleButton, Name: "OK"}
	b := Snapshot{Handle: h("y"), Role: RoleButton, Name: "OK"}
	assert.False(t, SameElement(a, b), "distinct handles are distinct elements")

	a.Handle, b.Handle = Handle{}, Handle{}
	a.Bounds = Rect{X: 10, Y: 20, W: 50, H: 20}
	b.Bounds = Rect{X: 10, Y: 20, W: 60, H: 20}
	assert.True(t, SameElement(a, b), "heuristic matches role, name and position")

	b.Bounds.Y = 40
	assert.False(t, SameElement(a, b))
}

func TestParseRoleAndStates(t *testing.T) {
	r, err := ParseRole("Heading")
	require.NoError(t, err)
	assert.Equal(t, RoleHeading, r)

	_, err = ParseRole("spaceship")
	assert.Error(t, err)

	s, err := ParseStates([]string{"focused", "checked"})
	require.NoError(t, err)
	assert.True(t, s.Has(StateFocused|StateChecked))
	assert.Equal(t, "focused|checked", s.String())

	_, err = ParseStates([]string{"levitating"})
	assert.Error(t, err)
}
