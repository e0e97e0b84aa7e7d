package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PolicySource adalah pembacaan policy yang dibutuhkan resolver. Repository
// memenuhinya langsung; PolicyCache membungkusnya dengan redis.
type PolicySource interface {
	ActiveMatrices(ctx context.Context, companyID string, entityType EntityType) ([]ApprovalMatrix, error)
	WorkflowForRole(ctx context.Context, companyID string, entityType EntityType, role string) (*WorkflowDefinition, error)
	DefaultWorkflow(ctx context.Context, companyID string, entityType EntityType) (*WorkflowDefinition, error)
	ActiveDelegationFor(ctx context.Context, companyID, delegatorID string, entityType EntityType, now time.Time) (*ApprovalDelegation, error)
}

// RepoPolicySource mengadaptasi Repository menjadi PolicySource tanpa cache.
type RepoPolicySource struct {
	repo Repository
}

func NewRepoPolicySource(repo Repository) *RepoPolicySource {
	return &RepoPolicySource{repo: repo}
}

func (s *RepoPolicySource) ActiveMatrices(ctx context.Context, companyID string, entityType EntityType) ([]ApprovalMatrix, error) {
	return s.repo.ListActiveMatrices(ctx, companyID, entityType)
}

func (s *RepoPolicySource) WorkflowForRole(ctx context.Context, companyID string, entityType EntityType, role string) (*WorkflowDefinition, error) {
	return s.repo.FindWorkflowForRole(ctx, companyID, entityType, role)
}

func (s *RepoPolicySource) DefaultWorkflow(ctx context.Context, companyID string, entityType EntityType) (*WorkflowDefinition, error) {
	return s.repo.FindDefaultWorkflow(ctx, companyID, entityType)
}

func (s *RepoPolicySource) ActiveDelegationFor(ctx context.Context, companyID, delegatorID string, entityType EntityType, now time.Time) (*ApprovalDelegation, error) {
	delegations, err := s.repo.ListActiveDelegationsByDelegator(ctx, companyID, delegatorID, now)
	if err != nil {
		return nil, err
	}
	for i := range delegations {
		if delegations[i].InEffect(entityType, now) {
			return &delegations[i], nil
		}
	}
	return nil, nil
}

// PolicyCache menyimpan hasil pembacaan policy per tenant di redis.
// Policy read-mostly; invalidasi dilakukan service saat policy diedit.
// Delegasi tidak di-cache: window waktunya harus dievaluasi segar.
type PolicyCache struct {
	source PolicySource
	rdb    *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	logger *zap.Logger
}

func NewPolicyCache(source PolicySource, rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) *PolicyCache {
	l := zap.L().Named("approval.policycache")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.policycache")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PolicyCache{source: source, rdb: rdb, ttl: ttl, logger: l}
}

func matricesKey(companyID string, entityType EntityType) string {
	return fmt.Sprintf("approval:policy:%s:%s:matrices", companyID, entityType)
}

func roleWorkflowKey(companyID string, entityType EntityType, role string) string {
	return fmt.Sprintf("approval:policy:%s:%s:workflow:role:%s", companyID, entityType, role)
}

func defaultWorkflowKey(companyID string, entityType EntityType) string {
	return fmt.Sprintf("approval:policy:%s:%s:workflow:default", companyID, entityType)
}

func (c *PolicyCache) ActiveMatrices(ctx context.Context, companyID string, entityType EntityType) ([]ApprovalMatrix, error) {
	key := matricesKey(companyID, entityType)
	var matrices []ApprovalMatrix
	hit, err := c.get(ctx, key, &matrices)
	if err == nil && hit {
		return matrices, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		fresh, err := c.source.ActiveMatrices(ctx, companyID, entityType)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, fresh)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ApprovalMatrix), nil
}

func (c *PolicyCache) WorkflowForRole(ctx context.Context, companyID string, entityType EntityType, role string) (*WorkflowDefinition, error) {
	key := roleWorkflowKey(companyID, entityType, role)
	var cached cachedWorkflow
	hit, err := c.get(ctx, key, &cached)
	if err == nil && hit {
		return cached.Workflow, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		fresh, err := c.source.WorkflowForRole(ctx, companyID, entityType, role)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, cachedWorkflow{Workflow: fresh})
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*WorkflowDefinition), nil
}

func (c *PolicyCache) DefaultWorkflow(ctx context.Context, companyID string, entityType EntityType) (*WorkflowDefinition, error) {
	key := defaultWorkflowKey(companyID, entityType)
	var cached cachedWorkflow
	hit, err := c.get(ctx, key, &cached)
	if err == nil && hit {
		return cached.Workflow, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		fresh, err := c.source.DefaultWorkflow(ctx, companyID, entityType)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, cachedWorkflow{Workflow: fresh})
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*WorkflowDefinition), nil
}

func (c *PolicyCache) ActiveDelegationFor(ctx context.Context, companyID, delegatorID string, entityType EntityType, now time.Time) (*ApprovalDelegation, error) {
	return c.source.ActiveDelegationFor(ctx, companyID, delegatorID, entityType, now)
}

// Invalidate menghapus semua entri policy milik satu tenant.
func (c *PolicyCache) Invalidate(ctx context.Context, companyID string) {
	pattern := fmt.Sprintf("approval:policy:%s:*", companyID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("policy cache scan failed", zap.String("company_id", companyID), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("policy cache invalidation failed", zap.String("company_id", companyID), zap.Error(err))
	}
}

// cachedWorkflow membungkus pointer supaya miss (nil) ikut tersimpan dan
// tidak memukul DB terus-menerus.
type cachedWorkflow struct {
	Workflow *WorkflowDefinition `json:"workflow"`
}

func (c *PolicyCache) get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		c.logger.Warn("policy cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *PolicyCache) set(ctx context.Context, key string, val any) {
	payload, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("policy cache write failed", zap.String("key", key), zap.Error(err))
	}
}
