package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrChunkNotFound 分块文件缺失（接收与 finalize 之间被意外删除）
var ErrChunkNotFound = errors.New("chunk not found")

// ChunkStore 文件系统分块存储
//
// 布局：{basePath}/sessions/{sessionID}/chunk_000042
// 每个会话一个目录，finalize 成功或会话过期时整目录递归删除。
type ChunkStore struct {
	basePath string
}

// NewChunkStore 创建分块存储实例
func NewChunkStore(basePath string) (*ChunkStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("chunk store base path is required")
	}

	// 确保基础目录存在
	if err := os.MkdirAll(filepath.Join(basePath, "sessions"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &ChunkStore{basePath: basePath}, nil
}

// sessionDir 会话目录路径
func (cs *ChunkStore) sessionDir(sessionID string) string {
	return filepath.Join(cs.basePath, "sessions", sessionID)
}

// chunkPath 分块文件路径
func (cs *ChunkStore) chunkPath(sessionID string, index int) string {
	return filepath.Join(cs.sessionDir(sessionID), fmt.Sprintf("chunk_%06d", index))
}

// SaveChunk 保存一个分块
//
// 先写入临时文件再原子重命名，避免并发重传产生半写文件。
// 重复保存同一索引直接覆盖。返回写入的字节数。
func (cs *ChunkStore) SaveChunk(sessionID string, index int, r io.Reader) (int64, error) {
	dir := cs.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".chunk_%06d_*", index))
	if err != nil {
		return 0, fmt.Errorf("failed to create temp chunk file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to write chunk: %w", err)
	}

	if err := os.Rename(tmpName, cs.chunkPath(sessionID, index)); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to commit chunk: %w", err)
	}

	return n, nil
}

// HasChunk 检查分块文件是否存在
func (cs *ChunkStore) HasChunk(sessionID string, index int) bool {
	info, err := os.Stat(cs.chunkPath(sessionID, index))
	return err == nil && !info.IsDir()
}

// OpenChunk 打开分块文件用于读取
func (cs *ChunkStore) OpenChunk(sessionID string, index int) (io.ReadCloser, error) {
	f, err := os.Open(cs.chunkPath(sessionID, index))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChunkNotFound
		}
		return nil, fmt.Errorf("failed to open chunk: %w", err)
	}
	return f, nil
}

// ChunkSize 返回分块文件大小
func (cs *ChunkStore) ChunkSize(sessionID string, index int) (int64, error) {
	info, err := os.Stat(cs.chunkPath(sessionID, index))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrChunkNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

// Assemble 把 0..count-1 的分块按索引顺序拼接写入 w
//
// 写入前对每个分块做存在性复查：任何一块缺失立即返回
// ErrChunkNotFound（包装缺失索引），不产出残缺产物。
func (cs *ChunkStore) Assemble(w io.Writer, sessionID string, count int) (int64, error) {
	var total int64
	for i := 0; i < count; i++ {
		f, err := cs.OpenChunk(sessionID, i)
		if err != nil {
			if errors.Is(err, ErrChunkNotFound) {
				return total, fmt.Errorf("chunk %d: %w", i, ErrChunkNotFound)
			}
			return total, err
		}

		n, err := io.Copy(w, f)
		f.Close()
		total += n
		if err != nil {
			return total, fmt.Errorf("failed to read chunk %d: %w", i, err)
		}
	}
	return total, nil
}

// DeleteChunk 删除单个分块文件
func (cs *ChunkStore) DeleteChunk(sessionID string, index int) error {
	err := os.Remove(cs.chunkPath(sessionID, index))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeleteSession 递归删除会话目录及其所有分块
func (cs *ChunkStore) DeleteSession(sessionID string) error {
	return os.RemoveAll(cs.sessionDir(sessionID))
}

// CleanupStale 删除修改时间早于 cutoff 的会话目录，返回删除数量
//
// 兜底回收：会话记录已丢失（如进程崩溃）时文件系统里残留的
// 孤儿分块目录由这里清掉。
func (cs *ChunkStore) CleanupStale(cutoff time.Time) (int, error) {
	sessionsPath := filepath.Join(cs.basePath, "sessions")

	entries, err := os.ReadDir(sessionsPath)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(sessionsPath, entry.Name())
		info, err := os.Stat(dir)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(dir); err == nil {
				count++
			}
		}
	}
	return count, nil
}
