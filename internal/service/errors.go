// Package service 业务逻辑层
package service

import (
	"errors"

	"github.com/pu-ac-cn/club-backend/internal/repository"
	"github.com/pu-ac-cn/club-backend/internal/storage"
)

// 错误定义
var (
	ErrClubNotFound   = repository.ErrClubNotFound
	ErrClubNameExists = repository.ErrClubNameExists
	ErrUploadFailed   = storage.ErrUploadFailed

	ErrInvalidArgument   = errors.New("参数错误")
	ErrUnsupportedAction = errors.New("不支持的操作")
	ErrImportFailed      = errors.New("导入失败")
	ErrExportFailed      = errors.New("导出失败")
)
