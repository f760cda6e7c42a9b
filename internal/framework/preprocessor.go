package framework

import (
	"context"
	"fmt"
)

// Step 带名称的处理步骤
type Step struct {
	Name string
	Func ProcessorFunc
}

// PreProcessor 函数链处理器（PreProcess → Process → PostProcess）
type PreProcessor struct {
	steps []Step
}

// NewPreProcessor 创建函数链处理器
func NewPreProcessor(steps ...Step) *PreProcessor {
	return &PreProcessor{steps: steps}
}

// Run 依次执行；任一步返回 error 或 ctx 取消时立即停止
// 返回的 error 保留原始错误链，errors.Is / errors.As 可用
func (p *PreProcessor) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		if err := step.Func(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return nil
}
