// Package guard 防止破坏性的维护操作落到生产数据库上
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"beatmapvault/pkg/meta"
)

// ProductionMarker 是 counts 表中标记生产环境的行
const ProductionMarker = "is_production"

var ErrSafetyViolation = errors.New("refusing to run destructive operation against a production database")

// Verdict 是 Check 的结果
type Verdict struct {
	Safe   bool
	Reason string
}

func (v Verdict) String() string {
	if v.Safe {
		return "safe"
	}
	return "violation: " + v.Reason
}

// Guard 只读检查，不做任何修改
type Guard struct {
	repo *meta.Repository
	log  *slog.Logger
}

func New(repo *meta.Repository, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{repo: repo, log: log.With(slog.String("component", "guard"))}
}

// Check 判断当前数据库是否允许破坏性操作
// 只要标记行存在即视为生产环境，与其计数值无关
func (g *Guard) Check(ctx context.Context) (Verdict, error) {
	c, err := g.repo.GetCounter(ctx, ProductionMarker)
	if errors.Is(err, meta.ErrNotFound) {
		return Verdict{Safe: true}, nil
	}
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to read production marker: %w", err)
	}
	return Verdict{
		Reason: fmt.Sprintf("counter %q is present (count = %d)", c.Name, c.Count),
	}, nil
}

// AssertSafeToDestroy 在检测到生产标记时返回 ErrSafetyViolation
func (g *Guard) AssertSafeToDestroy(ctx context.Context) error {
	v, err := g.Check(ctx)
	if err != nil {
		return err
	}
	if !v.Safe {
		g.log.Warn("destructive operation blocked", slog.String("reason", v.Reason))
		return fmt.Errorf("%w: %s", ErrSafetyViolation, v.Reason)
	}
	return nil
}

// Reinitialise 删除并重建所有版本存储表
// 先过 guard；被拒绝时不做任何修改
func (g *Guard) Reinitialise(ctx context.Context) error {
	if err := g.AssertSafeToDestroy(ctx); err != nil {
		return err
	}
	if err := g.repo.RecreateVersioningTables(ctx); err != nil {
		return err
	}
	g.log.Info("versioning tables reinitialised")
	return nil
}
