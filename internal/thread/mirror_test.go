package thread

import (
	"context"
	"errors"
	"inkwell/internal/services"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// makeRecord 构造一条测试评论记录
func makeRecord(id string, parentID *string, offset time.Duration) services.CommentRecord {
	return services.CommentRecord{
		ID:        id,
		Content:   "content of " + id,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset),
		AuthorID:  1,
		ParentID:  parentID,
		PostID:    "p1",
		Author:    services.AuthorInfo{ID: 1, Name: "ada"},
	}
}

func makeThread(id string, replies ...services.CommentRecord) services.CommentThread {
	return services.CommentThread{
		CommentRecord: makeRecord(id, nil, 0),
		Replies:       replies,
	}
}

func staticFetch(threads []services.CommentThread) FetchFunc {
	return func(ctx context.Context) ([]services.CommentThread, error) {
		return threads, nil
	}
}

func TestMirrorLoadSnapshot(t *testing.T) {
	parentID := "top-1"
	threads := []services.CommentThread{
		makeThread("top-1", makeRecord("r-1", &parentID, time.Minute)),
		makeThread("top-2"),
	}

	m := NewMirror(staticFetch(threads))
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Expected 2 threads, got %d", len(snap))
	}
	if snap[0].ID != "top-1" || snap[1].ID != "top-2" {
		t.Errorf("Expected server order preserved, got %s, %s", snap[0].ID, snap[1].ID)
	}
	if len(snap[0].Replies) != 1 || snap[0].Replies[0].ID != "r-1" {
		t.Errorf("Expected reply r-1 under top-1, got %+v", snap[0].Replies)
	}
}

func TestMirrorLoadError(t *testing.T) {
	wantErr := errors.New("connection refused")
	m := NewMirror(func(ctx context.Context) ([]services.CommentThread, error) {
		return nil, wantErr
	})
	if err := m.Load(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Expected fetch error passthrough, got %v", err)
	}
	if len(m.Snapshot()) != 0 {
		t.Errorf("Expected empty snapshot after failed load")
	}
}

func TestMirrorApplyTopLevel(t *testing.T) {
	m := NewMirror(staticFetch([]services.CommentThread{makeThread("top-1")}))
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !m.Apply(makeRecord("live-1", nil, time.Hour)) {
		t.Fatal("Expected Apply to report a change")
	}

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Expected 2 threads, got %d", len(snap))
	}
	// 广播到达的顶层评论追加在权威树之后
	if snap[1].ID != "live-1" {
		t.Errorf("Expected live-1 appended, got %s", snap[1].ID)
	}
	if len(snap[1].Replies) != 0 {
		t.Errorf("Expected empty reply list for new top-level comment")
	}
}

func TestMirrorApplyReply(t *testing.T) {
	m := NewMirror(staticFetch([]services.CommentThread{makeThread("top-1")}))
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	parentID := "top-1"
	if !m.Apply(makeRecord("live-r", &parentID, time.Hour)) {
		t.Fatal("Expected Apply to report a change")
	}

	snap := m.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Expected 1 thread, got %d", len(snap))
	}
	if len(snap[0].Replies) != 1 || snap[0].Replies[0].ID != "live-r" {
		t.Errorf("Expected live-r grouped under top-1, got %+v", snap[0].Replies)
	}
}

func TestMirrorApplyDuplicate(t *testing.T) {
	m := NewMirror(staticFetch(nil))
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	rec := makeRecord("dup-1", nil, 0)
	if !m.Apply(rec) {
		t.Fatal("Expected first Apply to change the mirror")
	}
	// 同一条评论可能从查询和推送两条路径各到一次
	if m.Apply(rec) {
		t.Error("Expected duplicate Apply to be a no-op")
	}
	if got := len(m.Snapshot()); got != 1 {
		t.Errorf("Expected 1 thread after duplicate delivery, got %d", got)
	}
}

func TestMirrorLoadSupersedesOverlay(t *testing.T) {
	// 第一次拉取为空，广播先到；第二次拉取覆盖同 ID 条目
	var mu sync.Mutex
	var threads []services.CommentThread
	m := NewMirror(func(ctx context.Context) ([]services.CommentThread, error) {
		mu.Lock()
		defer mu.Unlock()
		return threads, nil
	})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	live := makeRecord("c-1", nil, 0)
	live.Content = "from broadcast"
	m.Apply(live)

	authoritative := makeThread("c-1")
	authoritative.Content = "from fetch"
	mu.Lock()
	threads = []services.CommentThread{authoritative}
	mu.Unlock()

	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := m.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Expected 1 thread after convergence, got %d", len(snap))
	}
	if snap[0].Content != "from fetch" {
		t.Errorf("Expected authoritative copy to supersede overlay, got %q", snap[0].Content)
	}

	// 收敛后重复投递依然是幂等的
	if m.Apply(live) {
		t.Error("Expected Apply after convergence to be a no-op")
	}
}

func TestMirrorOrphanReplyTriggersResync(t *testing.T) {
	parentID := "top-" + uuid.NewString()

	var mu sync.Mutex
	var threads []services.CommentThread
	fetched := make(chan struct{}, 4)
	m := NewMirror(func(ctx context.Context) ([]services.CommentThread, error) {
		mu.Lock()
		defer mu.Unlock()
		fetched <- struct{}{}
		return threads, nil
	})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	<-fetched

	// 服务端此时已经有父评论了，镜像还没拉到
	mu.Lock()
	threads = []services.CommentThread{makeThread(parentID)}
	mu.Unlock()

	orphan := makeRecord("orphan-1", &parentID, time.Hour)
	if !m.Apply(orphan) {
		t.Fatal("Expected orphan reply to be kept")
	}

	// 孤儿回复立即可见，先不分组
	snap := m.Snapshot()
	found := false
	for _, th := range snap {
		if th.ID == "orphan-1" {
			found = true
		}
	}
	if !found {
		t.Error("Expected orphan reply visible before resync")
	}

	// 等后台重新拉取完成，孤儿应被归位到父评论下
	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a background resync fetch")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap = m.Snapshot()
		if len(snap) == 1 && snap[0].ID == parentID &&
			len(snap[0].Replies) == 1 && snap[0].Replies[0].ID == "orphan-1" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected orphan grouped under parent after resync, got %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
