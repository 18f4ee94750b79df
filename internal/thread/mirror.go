package thread

import (
	"context"
	"inkwell/internal/services"
	"log"
	"sync"
)

// Mirror 是单个阅读者视角下的评论树镜像：
// 权威树来自一次显式拉取，实时广播到达后先进入 overlay 立即可见，
// 下一次权威拉取覆盖同 ID 的 overlay 条目，最终收敛。
// 两条路径（查询 / 推送）可能重复、乱序送达同一条评论，按 ID 幂等合并。

// FetchFunc 拉取权威评论树（通常包装 CommentStore.FetchCommentTree）
type FetchFunc func(ctx context.Context) ([]services.CommentThread, error)

type Mirror struct {
	mu    sync.Mutex
	fetch FetchFunc

	// 权威树，按服务端顺序
	authoritative []services.CommentThread

	// overlay：广播先于下一次拉取到达的条目
	overlayTops    []services.CommentThread
	overlayReplies map[string][]services.CommentRecord // 顶层评论 ID -> 追加的回复

	// 父评论尚未可见的回复，渲染时不分组挂在末尾
	orphans []services.CommentRecord

	// 所有已见过的评论 ID（权威 + overlay + orphan），用于去重
	seen map[string]bool

	resyncing bool
}

func NewMirror(fetch FetchFunc) *Mirror {
	return &Mirror{
		fetch:          fetch,
		overlayReplies: make(map[string][]services.CommentRecord),
		seen:           make(map[string]bool),
	}
}

// Load 拉取权威树并重建索引。
// overlay 中 ID 已出现在权威树里的条目被权威副本取代，其余保留。
func (m *Mirror) Load(ctx context.Context) error {
	threads, err := m.fetch(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.install(threads)
	return nil
}

// install 用一棵新的权威树替换状态，调用方需持有锁
func (m *Mirror) install(threads []services.CommentThread) {
	authIDs := make(map[string]bool)
	topLevel := make(map[string]bool)
	for _, t := range threads {
		authIDs[t.ID] = true
		topLevel[t.ID] = true
		for _, r := range t.Replies {
			authIDs[r.ID] = true
		}
	}

	// 留下权威树还没覆盖到的 overlay 顶层条目
	var keptTops []services.CommentThread
	for _, t := range m.overlayTops {
		if !authIDs[t.ID] {
			keptTops = append(keptTops, t)
			topLevel[t.ID] = true
		}
	}

	// 同理保留 overlay 回复
	keptReplies := make(map[string][]services.CommentRecord)
	for parentID, replies := range m.overlayReplies {
		for _, r := range replies {
			if !authIDs[r.ID] {
				keptReplies[parentID] = append(keptReplies[parentID], r)
			}
		}
	}

	// 孤儿回复：父评论已经出现的，转正为 overlay 回复
	var keptOrphans []services.CommentRecord
	for _, r := range m.orphans {
		if authIDs[r.ID] {
			continue
		}
		if r.ParentID != nil && topLevel[*r.ParentID] {
			keptReplies[*r.ParentID] = append(keptReplies[*r.ParentID], r)
		} else {
			keptOrphans = append(keptOrphans, r)
		}
	}

	m.authoritative = threads
	m.overlayTops = keptTops
	m.overlayReplies = keptReplies
	m.orphans = keptOrphans

	// 重建去重索引
	m.seen = authIDs
	for _, t := range keptTops {
		m.seen[t.ID] = true
	}
	for _, replies := range keptReplies {
		for _, r := range replies {
			m.seen[r.ID] = true
		}
	}
	for _, r := range keptOrphans {
		m.seen[r.ID] = true
	}
}

// Apply 合并一条广播来的评论，按 ID 幂等：重复投递不改变镜像。
// 返回是否真的改变了镜像。
func (m *Mirror) Apply(rec services.CommentRecord) bool {
	m.mu.Lock()

	if m.seen[rec.ID] {
		m.mu.Unlock()
		return false
	}
	m.seen[rec.ID] = true

	if rec.ParentID == nil || *rec.ParentID == "" {
		// 新的顶层评论，回复列表从空开始
		m.overlayTops = append(m.overlayTops, services.CommentThread{
			CommentRecord: rec,
			Replies:       []services.CommentRecord{},
		})
		m.mu.Unlock()
		return true
	}

	parentID := *rec.ParentID
	if m.isTopLevel(parentID) {
		m.overlayReplies[parentID] = append(m.overlayReplies[parentID], rec)
		m.mu.Unlock()
		return true
	}

	// 回复先于父评论到达：不丢弃，先不分组渲染，同时触发一次后台重新拉取
	m.orphans = append(m.orphans, rec)
	needResync := !m.resyncing
	if needResync {
		m.resyncing = true
	}
	m.mu.Unlock()

	if needResync {
		go m.resync()
	}
	return true
}

// isTopLevel 判断某 ID 是否为当前可见的顶层评论，调用方需持有锁
func (m *Mirror) isTopLevel(id string) bool {
	for _, t := range m.authoritative {
		if t.ID == id {
			return true
		}
	}
	for _, t := range m.overlayTops {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (m *Mirror) resync() {
	defer func() {
		m.mu.Lock()
		m.resyncing = false
		m.mu.Unlock()
	}()

	if err := m.Load(context.Background()); err != nil {
		log.Printf("comment mirror resync failed: %v", err)
	}
}

// Snapshot 渲染当前树：权威树 ∪ overlay，孤儿回复不分组挂在末尾。
// 返回的是副本，调用方可以放心遍历。
func (m *Mirror) Snapshot() []services.CommentThread {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]services.CommentThread, 0, len(m.authoritative)+len(m.overlayTops)+len(m.orphans))

	appendThread := func(t services.CommentThread) {
		merged := services.CommentThread{
			CommentRecord: t.CommentRecord,
			Replies:       make([]services.CommentRecord, 0, len(t.Replies)+len(m.overlayReplies[t.ID])),
		}
		merged.Replies = append(merged.Replies, t.Replies...)
		merged.Replies = append(merged.Replies, m.overlayReplies[t.ID]...)
		out = append(out, merged)
	}

	for _, t := range m.authoritative {
		appendThread(t)
	}
	for _, t := range m.overlayTops {
		appendThread(t)
	}
	for _, r := range m.orphans {
		out = append(out, services.CommentThread{
			CommentRecord: r,
			Replies:       []services.CommentRecord{},
		})
	}
	return out
}
