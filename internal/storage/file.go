// Package storage 上传文件落盘
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUploadFailed 文件上传失败
var ErrUploadFailed = errors.New("文件上传失败")

// FileStore 文件存储接口
type FileStore interface {
	// Save 保存文件，返回可访问的相对 URL
	Save(r io.Reader, originalName, subDir string) (string, error)
}

// LocalFileStore 本地磁盘存储
type LocalFileStore struct {
	root      string
	urlPrefix string
}

// NewLocalFileStore 创建本地磁盘存储，urlPrefix 为空时使用 /uploads
func NewLocalFileStore(root, urlPrefix string) *LocalFileStore {
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &LocalFileStore{
		root:      root,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}
}

// Root 返回存储根目录
func (s *LocalFileStore) Root() string {
	return s.root
}

// Save 以随机 UUID 命名保存文件，保留原始扩展名
// 同一归属的旧文件不会被删除
func (s *LocalFileStore) Save(r io.Reader, originalName, subDir string) (string, error) {
	dir, err := cleanSubDir(subDir)
	if err != nil {
		return "", err
	}

	filename := uuid.New().String() + extension(originalName)

	uploadPath := filepath.Join(s.root, filepath.FromSlash(dir))
	if err := os.MkdirAll(uploadPath, 0o755); err != nil {
		return "", fmt.Errorf("%w: 创建目录失败: %v", ErrUploadFailed, err)
	}

	// O_EXCL 保证不会覆盖已有文件
	f, err := os.OpenFile(filepath.Join(uploadPath, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("%w: 写入文件失败: %v", ErrUploadFailed, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return path.Join(s.urlPrefix, dir, filename), nil
}

// extension 返回包含点号的扩展名，没有扩展名时为空串
func extension(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx:]
}

// cleanSubDir 规范化子目录，禁止跳出根目录
func cleanSubDir(subDir string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(subDir, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: 子目录不能为空", ErrUploadFailed)
	}
	if cleaned != strings.Trim(strings.ReplaceAll(subDir, "\\", "/"), "/") {
		return "", fmt.Errorf("%w: 非法的子目录 %q", ErrUploadFailed, subDir)
	}
	return cleaned, nil
}
