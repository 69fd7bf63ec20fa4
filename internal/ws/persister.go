package ws

import (
	"sync"
	"time"

	"github.com/S1D007/Chat-App-Backend/internal/metrics"
	"github.com/S1D007/Chat-App-Backend/internal/models"
	"github.com/rs/zerolog/log"
)

// Job 是一次待落库的消息追加。
type Job struct {
	ChatID uint
	UserID uint
	Body   string
	At     time.Time
}

// MessageStore 由 service 层实现，persister 只依赖这一个口。
type MessageStore interface {
	Append(chatID, userID uint, body string, at time.Time) (*models.Message, error)
}

// Persister 把广播路径和持久化路径解耦：
// 入队永不阻塞，落库由单个 worker 带有限重试地消费，
// 失败只记日志和计数，从不回传给发送者。
type Persister struct {
	store MessageStore
	jobs  chan Job
	done  chan struct{}

	mu     sync.RWMutex // 保护 closed 与 jobs 的关闭时序
	closed bool
}

func NewPersister(store MessageStore, buffer int) *Persister {
	if buffer <= 0 {
		buffer = 256
	}
	return &Persister{store: store, jobs: make(chan Job, buffer), done: make(chan struct{})}
}

func (p *Persister) Start() {
	go p.run()
}

// Enqueue 非阻塞入队。队列打满说明存储已经落后，丢弃并计数。
// 停服后仍存活的连接可能继续入队，此时同样丢弃，不往已关闭的通道上发。
func (p *Persister) Enqueue(job Job) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		log.Warn().Uint("chat_id", job.ChatID).Uint("user_id", job.UserID).Msg("persister stopped, message dropped")
		return
	}
	select {
	case p.jobs <- job:
	default:
		metrics.PersistFailures.Inc()
		log.Error().Uint("chat_id", job.ChatID).Uint("user_id", job.UserID).Msg("persist queue full, message dropped")
	}
}

func (p *Persister) run() {
	defer close(p.done)
	for job := range p.jobs {
		p.persist(job)
	}
}

func (p *Persister) persist(job Job) {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		if _, err = p.store.Append(job.ChatID, job.UserID, job.Body, job.At); err == nil {
			return
		}
	}
	metrics.PersistFailures.Inc()
	log.Error().Err(err).Uint("chat_id", job.ChatID).Uint("user_id", job.UserID).Msg("persist message")
}

// Stop 停止接收新任务并排空队列，优雅停服用。重复调用安全。
func (p *Persister) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	<-p.done
}
