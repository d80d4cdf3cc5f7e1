package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNoAvailableAPIKey  = errors.New("no available API key")
	ErrAllKeysRateLimited = errors.New("all API keys are rate limited")
)

// ProviderAPIKey 是密钥池中的一条记录。一个服务商（按名称标识，如
// "deepseek"）可以配置多个 Key，用于负载均衡和容灾。
type ProviderAPIKey struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Provider string `gorm:"size:64;not null;index:idx_keypool_provider" json:"provider"` // 服务商名称
	APIKey   string `gorm:"size:500;not null" json:"api_key"`
	BaseURL  string `gorm:"size:255" json:"base_url"`       // 可选的 Key 级端点覆盖
	Label    string `gorm:"size:100" json:"label"`          // 标签（如 "主账号"、"备用账号"）
	Priority int    `gorm:"default:100" json:"priority"`    // 优先级（数字越小优先级越高）
	Weight   int    `gorm:"default:100" json:"weight"`      // 权重（用于加权随机）
	Enabled  bool   `gorm:"default:true" json:"enabled"`

	// 使用统计
	TotalRequests  int64      `gorm:"default:0" json:"total_requests"`
	FailedRequests int64      `gorm:"default:0" json:"failed_requests"`
	LastUsedAt     *time.Time `json:"last_used_at"`
	LastErrorAt    *time.Time `json:"last_error_at"`
	LastError      string     `gorm:"type:text" json:"last_error"`

	// 限流窗口
	RateLimitRPM int       `gorm:"default:0" json:"rate_limit_rpm"` // 每分钟上限（0 不限）
	RateLimitRPD int       `gorm:"default:0" json:"rate_limit_rpd"` // 每天上限（0 不限）
	CurrentRPM   int       `gorm:"default:0" json:"current_rpm"`
	CurrentRPD   int       `gorm:"default:0" json:"current_rpd"`
	RPMResetAt   time.Time `json:"rpm_reset_at"`
	RPDResetAt   time.Time `json:"rpd_reset_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProviderAPIKey) TableName() string {
	return "modelflow_provider_api_keys"
}

// IsHealthy 检查 Key 是否可用：启用状态、未触发限流窗口、错误率未超标。
func (k *ProviderAPIKey) IsHealthy() bool {
	if !k.Enabled {
		return false
	}

	now := time.Now()
	if k.RateLimitRPM > 0 {
		if now.Before(k.RPMResetAt) && k.CurrentRPM >= k.RateLimitRPM {
			return false
		}
	}
	if k.RateLimitRPD > 0 {
		if now.Before(k.RPDResetAt) && k.CurrentRPD >= k.RateLimitRPD {
			return false
		}
	}

	// 近 100 次请求失败率超过 50% 视为不健康
	if k.TotalRequests > 100 {
		recent := k.TotalRequests
		if recent > 100 {
			recent = 100
		}
		failRate := float64(k.FailedRequests) / float64(recent)
		if failRate > 0.5 {
			return false
		}
	}

	return true
}

// IncrementUsage 增加使用计数并滚动限流窗口。
func (k *ProviderAPIKey) IncrementUsage(success bool) {
	now := time.Now()
	k.TotalRequests++
	k.LastUsedAt = &now

	if !success {
		k.FailedRequests++
		k.LastErrorAt = &now
	}

	if now.After(k.RPMResetAt) {
		k.CurrentRPM = 0
		k.RPMResetAt = now.Add(time.Minute)
	}
	k.CurrentRPM++

	if now.After(k.RPDResetAt) {
		k.CurrentRPD = 0
		k.RPDResetAt = now.Add(24 * time.Hour)
	}
	k.CurrentRPD++
}

// AutoMigrateKeyPool 创建密钥池表结构。
func AutoMigrateKeyPool(db *gorm.DB) error {
	return db.AutoMigrate(&ProviderAPIKey{})
}

// APIKeySelectionStrategy API Key 选择策略
type APIKeySelectionStrategy string

const (
	StrategyRoundRobin     APIKeySelectionStrategy = "round_robin"     // 轮询
	StrategyWeightedRandom APIKeySelectionStrategy = "weighted_random" // 加权随机
	StrategyPriority       APIKeySelectionStrategy = "priority"        // 优先级
	StrategyLeastUsed      APIKeySelectionStrategy = "least_used"      // 最少使用
)

// APIKeyPool 按服务商名称管理一组 API Key。
type APIKeyPool struct {
	mu            sync.RWMutex
	db            *gorm.DB
	provider      string
	keys          []*ProviderAPIKey
	strategy      APIKeySelectionStrategy
	roundRobinIdx int
	logger        *zap.Logger
	rng           *rand.Rand
}

// NewAPIKeyPool 创建 API Key 池。
func NewAPIKeyPool(db *gorm.DB, provider string, strategy APIKeySelectionStrategy, logger *zap.Logger) *APIKeyPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategy == "" {
		strategy = StrategyWeightedRandom
	}

	return &APIKeyPool{
		db:       db,
		provider: provider,
		strategy: strategy,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoadKeys 从数据库加载该服务商启用的全部 Key。
func (p *APIKeyPool) LoadKeys(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var keys []*ProviderAPIKey
	err := p.db.WithContext(ctx).
		Where("provider = ? AND enabled = TRUE", p.provider).
		Order("priority ASC, weight DESC").
		Find(&keys).Error
	if err != nil {
		return fmt.Errorf("load API keys from database: %w", err)
	}

	p.keys = keys
	p.logger.Info("API keys loaded",
		zap.String("provider", p.provider),
		zap.Int("count", len(keys)))

	return nil
}

// SelectKey 按策略选择一个健康的 API Key。
func (p *APIKeyPool) SelectKey(ctx context.Context) (*ProviderAPIKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return nil, ErrNoAvailableAPIKey
	}

	healthy := make([]*ProviderAPIKey, 0, len(p.keys))
	for _, key := range p.keys {
		if key.IsHealthy() {
			healthy = append(healthy, key)
		}
	}
	if len(healthy) == 0 {
		return nil, ErrAllKeysRateLimited
	}

	var selected *ProviderAPIKey
	switch p.strategy {
	case StrategyRoundRobin:
		selected = p.selectRoundRobin(healthy)
	case StrategyPriority:
		selected = p.selectPriority(healthy)
	case StrategyLeastUsed:
		selected = p.selectLeastUsed(healthy)
	default:
		selected = p.selectWeightedRandom(healthy)
	}

	if selected == nil {
		return nil, ErrNoAvailableAPIKey
	}
	return selected, nil
}

func (p *APIKeyPool) selectRoundRobin(keys []*ProviderAPIKey) *ProviderAPIKey {
	if len(keys) == 0 {
		return nil
	}
	selected := keys[p.roundRobinIdx%len(keys)]
	p.roundRobinIdx++
	return selected
}

func (p *APIKeyPool) selectWeightedRandom(keys []*ProviderAPIKey) *ProviderAPIKey {
	if len(keys) == 0 {
		return nil
	}

	totalWeight := 0
	for _, key := range keys {
		totalWeight += key.Weight
	}
	if totalWeight == 0 {
		return keys[0]
	}

	target := p.rng.Intn(totalWeight)
	cumulative := 0
	for _, key := range keys {
		cumulative += key.Weight
		if cumulative > target {
			return key
		}
	}
	return keys[0]
}

func (p *APIKeyPool) selectPriority(keys []*ProviderAPIKey) *ProviderAPIKey {
	if len(keys) == 0 {
		return nil
	}
	// LoadKeys 已按 priority ASC 排序
	return keys[0]
}

func (p *APIKeyPool) selectLeastUsed(keys []*ProviderAPIKey) *ProviderAPIKey {
	if len(keys) == 0 {
		return nil
	}

	sorted := make([]*ProviderAPIKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TotalRequests < sorted[j].TotalRequests
	})
	return sorted[0]
}

// keyUsageSnapshot 是异步持久化时携带的字段副本，避免数据竞争。
type keyUsageSnapshot struct {
	ID             uint
	TotalRequests  int64
	FailedRequests int64
	LastUsedAt     *time.Time
	LastErrorAt    *time.Time
	LastError      string
	CurrentRPM     int
	CurrentRPD     int
	RPMResetAt     time.Time
	RPDResetAt     time.Time
}

// RecordSuccess 记录一次成功使用并异步持久化计数。
func (p *APIKeyPool) RecordSuccess(ctx context.Context, keyID uint) error {
	return p.record(keyID, true, "")
}

// RecordFailure 记录一次失败使用并异步持久化计数。
func (p *APIKeyPool) RecordFailure(ctx context.Context, keyID uint, errMsg string) error {
	return p.record(keyID, false, errMsg)
}

func (p *APIKeyPool) record(keyID uint, success bool, errMsg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, key := range p.keys {
		if key.ID != keyID {
			continue
		}

		key.IncrementUsage(success)
		if !success {
			key.LastError = errMsg
		}

		snapshot := keyUsageSnapshot{
			ID:             key.ID,
			TotalRequests:  key.TotalRequests,
			FailedRequests: key.FailedRequests,
			LastUsedAt:     key.LastUsedAt,
			LastErrorAt:    key.LastErrorAt,
			LastError:      key.LastError,
			CurrentRPM:     key.CurrentRPM,
			CurrentRPD:     key.CurrentRPD,
			RPMResetAt:     key.RPMResetAt,
			RPDResetAt:     key.RPDResetAt,
		}
		go p.persist(snapshot, success)
		return nil
	}

	return errors.New("API key not found")
}

// persist 在独立 goroutine 中更新数据库计数，带 panic 恢复。
func (p *APIKeyPool) persist(s keyUsageSnapshot, success bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in async API key update",
				zap.Uint("key_id", s.ID),
				zap.Any("panic", r))
		}
	}()

	updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updates := map[string]any{
		"total_requests": s.TotalRequests,
		"last_used_at":   s.LastUsedAt,
		"current_rpm":    s.CurrentRPM,
		"current_rpd":    s.CurrentRPD,
		"rpm_reset_at":   s.RPMResetAt,
		"rpd_reset_at":   s.RPDResetAt,
	}
	if !success {
		updates["failed_requests"] = s.FailedRequests
		updates["last_error_at"] = s.LastErrorAt
		updates["last_error"] = s.LastError
	}

	err := p.db.WithContext(updateCtx).Model(&ProviderAPIKey{}).
		Where("id = ?", s.ID).
		Updates(updates).Error
	if err != nil {
		p.logger.Error("failed to update API key usage",
			zap.Uint("key_id", s.ID),
			zap.Error(err))
	}
}

// Stats 返回每个 Key 的运行统计。
func (p *APIKeyPool) Stats() map[uint]*APIKeyStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make(map[uint]*APIKeyStats, len(p.keys))
	for _, key := range p.keys {
		stats[key.ID] = &APIKeyStats{
			KeyID:          key.ID,
			Label:          key.Label,
			BaseURL:        key.BaseURL,
			Enabled:        key.Enabled,
			IsHealthy:      key.IsHealthy(),
			TotalRequests:  key.TotalRequests,
			FailedRequests: key.FailedRequests,
			SuccessRate:    successRate(key),
			CurrentRPM:     key.CurrentRPM,
			CurrentRPD:     key.CurrentRPD,
			LastUsedAt:     key.LastUsedAt,
			LastErrorAt:    key.LastErrorAt,
			LastError:      key.LastError,
		}
	}
	return stats
}

func successRate(key *ProviderAPIKey) float64 {
	if key.TotalRequests == 0 {
		return 1.0
	}
	return float64(key.TotalRequests-key.FailedRequests) / float64(key.TotalRequests)
}

// APIKeyStats API Key 统计信息
type APIKeyStats struct {
	KeyID          uint       `json:"key_id"`
	Label          string     `json:"label"`
	BaseURL        string     `json:"base_url"`
	Enabled        bool       `json:"enabled"`
	IsHealthy      bool       `json:"is_healthy"`
	TotalRequests  int64      `json:"total_requests"`
	FailedRequests int64      `json:"failed_requests"`
	SuccessRate    float64    `json:"success_rate"`
	CurrentRPM     int        `json:"current_rpm"`
	CurrentRPD     int        `json:"current_rpd"`
	LastUsedAt     *time.Time `json:"last_used_at"`
	LastErrorAt    *time.Time `json:"last_error_at"`
	LastError      string     `json:"last_error"`
}
