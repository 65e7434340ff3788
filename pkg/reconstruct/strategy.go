package reconstruct

import (
	"fmt"

	"github.com/ccp-p/video-dub-cli/dub-processor/pkg/models"
)

const (
	// 缩放系数与1的偏差在此范围内时视频保持原速
	unchangedTolerance = 0.02
	// 缩放不超过该值时直接用setpts，肉眼看不出差异
	setptsLimit = 1.05
	// 定格策略在补齐时长外额外克隆的余量（秒）
	freezeExtraPad = 0.5
)

// filterContext 单个配音段的调速参数
type filterContext struct {
	Scale    float64 // 音频时长与槽位时长之比
	SlotDur  float64
	AudioDur float64
	FPS      int
}

// buildVideoFilter 按策略生成视频滤镜链，空串表示无需滤镜
func buildVideoFilter(strategy models.Strategy, ctx filterContext) string {
	if ctx.Scale <= 0 {
		return ""
	}
	if ctx.Scale >= 1-unchangedTolerance && ctx.Scale <= 1+unchangedTolerance {
		return ""
	}

	// 小幅调速统一走setpts，其余策略只在大幅拉伸时介入
	if ctx.Scale <= setptsLimit || strategy == models.StrategySpeedChange {
		return setptsFilter(ctx.Scale)
	}

	switch strategy {
	case models.StrategyFrameBlend:
		return fmt.Sprintf("%s,minterpolate=fps=%d:mi_mode=blend", setptsFilter(ctx.Scale), ctx.FPS)
	case models.StrategyFreezeFrame:
		pad := ctx.AudioDur - ctx.SlotDur
		if pad <= 0 {
			return setptsFilter(ctx.Scale)
		}
		return fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%.3f", pad+freezeExtraPad)
	default:
		return setptsFilter(ctx.Scale)
	}
}

func setptsFilter(scale float64) string {
	return fmt.Sprintf("setpts=%.4f*PTS", scale)
}
