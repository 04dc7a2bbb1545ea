package corrector

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/iWorld-y/risk_radar/app/risk_radar/pkg/model"
)

// repairBase 修复基准分，加上偏移后仍在常规区间内
const repairBase = 6

// repairOffsets 七个互不相同的偏移，修复后分数落在 6..18
var repairOffsets = [model.NumCategories]int{0, 4, 8, 2, 10, 6, 12}

// DampeningConfig 大型实体降权配置
type DampeningConfig struct {
	Enabled bool
	Factor  float64
	Ceiling int
	Roster  []string
}

// Config 修正器配置
type Config struct {
	Dampening DampeningConfig
}

// Corrector 对分类器输出做确定性修正，无 I/O，可并发使用
type Corrector struct {
	dampening DampeningConfig
	roster    []string
}

// New 创建修正器，名单统一转为小写
func New(cfg Config) *Corrector {
	roster := make([]string, 0, len(cfg.Dampening.Roster))
	for _, name := range cfg.Dampening.Roster {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			roster = append(roster, name)
		}
	}
	return &Corrector{dampening: cfg.Dampening, roster: roster}
}

// Correct 依次执行退化修复、一致性重算、大型实体降权、一致性重算。
// 回退评估只重算 overall_severity，primary_risk 保持 "error"。
func (c *Corrector) Correct(raw model.ArticleAssessment, entityName string) model.ArticleAssessment {
	out := raw.Clone()
	out.Clamp()

	if out.Fallback {
		_, out.OverallSeverity = out.Max()
		out.PrimaryRisk = model.PrimaryRiskError
		return out
	}

	if isDegenerate(out.Values()) {
		out.SetValues(repairedValues(seed(entityName, out.ArticleURL)))
	}
	reconcile(&out)

	if c.dampening.Enabled && c.IsMajorEntity(entityName) {
		c.dampen(&out)
		reconcile(&out)
	}
	return out
}

// IsMajorEntity 实体名是否包含名单中的任一条目（不区分大小写）
func (c *Corrector) IsMajorEntity(entityName string) bool {
	name := strings.ToLower(entityName)
	for _, major := range c.roster {
		if strings.Contains(name, major) {
			return true
		}
	}
	return false
}

func (c *Corrector) dampen(a *model.ArticleAssessment) {
	values := a.Values()
	for i, v := range values {
		if v < c.dampening.Ceiling {
			values[i] = int(math.Round(float64(v) * c.dampening.Factor))
		}
	}
	a.SetValues(values)
	a.Clamp()
}

func reconcile(a *model.ArticleAssessment) {
	cat, score := a.Max()
	a.PrimaryRisk = string(cat)
	a.OverallSeverity = score
}

// isDegenerate 全部落在常规区间且不同取值少于 3 个，或全部相同
func isDegenerate(values [model.NumCategories]int) bool {
	distinct := make(map[int]struct{}, len(values))
	routine := true
	for _, v := range values {
		distinct[v] = struct{}{}
		if v > model.RoutineScoreMax {
			routine = false
		}
	}
	return (len(distinct) < 3 && routine) || len(distinct) < 2
}

func repairedValues(shift int) [model.NumCategories]int {
	var values [model.NumCategories]int
	for i := range values {
		values[i] = repairBase + repairOffsets[(i+shift)%model.NumCategories]
	}
	return values
}

// seed 由实体名和文章 URL 决定偏移的轮转位置，同一输入结果固定
func seed(entityName, articleURL string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(entityName)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(articleURL))
	return int(h.Sum32() % uint32(model.NumCategories))
}
