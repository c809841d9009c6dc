package httptransport

import (
	"taskboard/backend/internal/auth"
	"taskboard/backend/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 认证错误
	auth.ErrInvalidCredentials: "用户名或密码错误",
	auth.ErrUserInactive:       "账户已被停用",
	auth.ErrInvalidEmail:       "邮箱格式无效",
	auth.ErrWeakPassword:       "密码长度至少为8个字符",

	// 上传错误
	service.ErrSessionNotFound:    "上传会话不存在或已完成",
	service.ErrNotSessionOwner:    "无权访问该上传会话",
	service.ErrFileTooLarge:       "文件大小超过上限",
	service.ErrInvalidFileSize:    "文件大小必须为正数",
	service.ErrInvalidChunkIndex:  "分块索引越界",
	service.ErrChunkTooLarge:      "分块超过允许的大小",
	service.ErrParentNotFound:     "关联的提交或卡片不存在",
	service.ErrInvalidParentKind:  "非法的附件归属类型",
	service.ErrObjectNotUploaded:  "对象尚未上传到存储，请先完成直传",
	service.ErrObjectSizeMismatch: "上传对象的大小与声明不一致",

	// 附件错误
	service.ErrAttachmentNotFound:         "附件不存在",
	service.ErrInvalidTranscriptionStatus: "非法的转写状态",

	// 看板错误
	service.ErrBoardNotFound:   "看板不存在",
	service.ErrListNotFound:    "列表不存在",
	service.ErrCardNotFound:    "卡片不存在",
	service.ErrBoardMismatch:   "标签与卡片不属于同一看板",
	service.ErrInvalidPosition: "目标位置非法",
	service.ErrTagNotFound:     "标签不存在",
	service.ErrInvalidTagColor: "标签颜色格式无效",

	// 提交错误
	service.ErrSubmissionNotFound:      "提交不存在",
	service.ErrNotSubmissionOwner:      "无权访问该提交",
	service.ErrAlreadyPromoted:         "提交已晋升为卡片",
	service.ErrInvalidUrgency:          "非法的紧急程度",
	service.ErrInvalidSubmissionStatus: "非法的提交状态",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"
	MsgInvalidJSON    = "JSON格式错误"

	// 认证相关
	MsgAuthRequired       = "需要登录认证"
	MsgInvalidCredentials = "用户名或密码错误"
	MsgPermissionDenied   = "权限不足"
	MsgEmailExists        = "邮箱已被注册"
	MsgUsernameExists     = "用户名已被占用"

	// 上传相关
	MsgUploadInitFailed     = "创建上传会话失败"
	MsgChunkUploadFailed    = "分块上传失败"
	MsgFinalizeFailed       = "完成上传失败"
	MsgUploadIncomplete     = "分块尚未齐全，无法完成上传"
	MsgChunkMissing         = "分块数据丢失，请重传缺失分块"
	MsgStorageFailed        = "存储写入失败，请稍后重试"
	MsgDirectTargetFailed   = "签发直传地址失败"
	MsgAttachmentLinkFailed = "登记附件失败"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
