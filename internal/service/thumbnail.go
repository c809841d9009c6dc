package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Thumbnailer 视频缩略图生成器，调用外部 ffmpeg 抽取首秒的一帧
type Thumbnailer struct {
	ffmpegPath string
	timeout    time.Duration
	log        *zap.Logger
}

// NewThumbnailer 创建缩略图生成器
func NewThumbnailer(ffmpegPath string, log *zap.Logger) *Thumbnailer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Thumbnailer{
		ffmpegPath: ffmpegPath,
		timeout:    30 * time.Second,
		log:        log,
	}
}

// Generate 从视频文件抽帧生成 JPEG 缩略图，返回缩略图临时文件路径
//
// 调用方负责删除返回的文件。任何失败（ffmpeg 不存在、视频损坏、
// 超时）都返回错误，由调用方决定是否致命。
func (t *Thumbnailer) Generate(ctx context.Context, videoPath string) (string, error) {
	out, err := os.CreateTemp("", "thumb_*.jpg")
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	outPath := out.Name()
	out.Close()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-ss", "00:00:01",
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", "scale=320:-1",
		"-y",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outPath)
		t.log.Debug("ffmpeg output", zap.ByteString("output", output))
		return "", fmt.Errorf("ffmpeg failed: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg produced no thumbnail")
	}

	return outPath, nil
}
