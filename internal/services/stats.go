package services

import (
	"inkwell/internal/db"
	"inkwell/internal/models"
	"log"
	"sync"
	"time"
)

// StatsService 提供异步重算帖子冗余计数（点赞数、评论数）的服务
type StatsService struct {
	queue   chan string // 待更新的帖子 Pid 队列
	pending map[string]bool
	mu      sync.Mutex
}

var (
	statsService *StatsService
	statsOnce    sync.Once
)

// GetStatsService 获取单例统计服务
func GetStatsService() *StatsService {
	statsOnce.Do(func() {
		statsService = &StatsService{
			queue:   make(chan string, 1000), // 缓冲队列，防止阻塞
			pending: make(map[string]bool),
		}
		// 启动后台 worker
		go statsService.worker()
	})
	return statsService
}

// ScheduleUpdate 将帖子加入更新队列（异步）
// 使用去重机制避免短时间内重复计算同一帖子
func (s *StatsService) ScheduleUpdate(pid string) {
	s.mu.Lock()
	if s.pending[pid] {
		// 已在队列中，跳过
		s.mu.Unlock()
		return
	}
	s.pending[pid] = true
	s.mu.Unlock()

	// 非阻塞发送到队列
	select {
	case s.queue <- pid:
		// 成功加入队列
	default:
		// 队列满了，移除 pending 标记
		s.mu.Lock()
		delete(s.pending, pid)
		s.mu.Unlock()
		log.Printf("stats queue full, skipping post %s", pid)
	}
}

// worker 后台处理队列中的更新请求
func (s *StatsService) worker() {
	// 批量处理：收集一批请求后统一处理
	batch := make([]string, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond) // 每 500ms 处理一批
	defer ticker.Stop()

	for {
		select {
		case pid := <-s.queue:
			batch = append(batch, pid)
			// 如果达到批量大小，立即处理
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			// 定时处理剩余的
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

// processBatch 重算一批帖子的计数并清理 pending 标记
func (s *StatsService) processBatch(pids []string) {
	for _, pid := range pids {
		s.RecomputeNow(pid)

		s.mu.Lock()
		delete(s.pending, pid)
		s.mu.Unlock()
	}
}

// RecomputeNow 同步重算单个帖子的点赞数与评论数。
// 评论数 = 顶层评论 + 它们的直接回复（与读取契约一致）。
func (s *StatsService) RecomputeNow(pid string) {
	var post models.Post
	if err := db.DB.Select("id, pid").Where("pid = ?", pid).First(&post).Error; err != nil {
		return
	}

	var likeCount int64
	db.DB.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likeCount)

	var commentCount int64
	db.DB.Model(&models.Comment{}).
		Where("post_pid = ? OR parent_id IN (?)",
			pid,
			db.DB.Model(&models.Comment{}).Select("id").Where("post_pid = ?", pid),
		).
		Count(&commentCount)

	if err := db.DB.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"like_count":    likeCount,
		"comment_count": commentCount,
	}).Error; err != nil {
		log.Printf("failed to update stats for post %s: %v", pid, err)
	}
}
