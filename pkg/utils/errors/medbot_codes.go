package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// medbot 服务代码: 21
// 错误码格式: AABBCCC

var (
	// 请求参数错误 (类别 01)
	ErrEmptyQuery = Register(New(MakeCode(ServiceMedbot, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument,
		"Please type a question so I can help you.",
		"请输入您的问题。"))
	ErrInvalidRequest = Register(New(MakeCode(ServiceMedbot, CategoryRequest, 2),
		http.StatusBadRequest, codes.InvalidArgument,
		"The message could not be read. Please try again.",
		"无法读取消息，请重试。"))

	// 外部服务错误 (类别 10 - Network)
	ErrEmbedding = Register(New(MakeCode(ServiceMedbot, CategoryNetwork, 1),
		http.StatusServiceUnavailable, codes.Unavailable,
		"The assistant is temporarily unavailable. Please try again later.",
		"助手暂时不可用，请稍后再试。"))
	ErrRetrieval = Register(New(MakeCode(ServiceMedbot, CategoryNetwork, 2),
		http.StatusServiceUnavailable, codes.Unavailable,
		"The medical knowledge base is temporarily unavailable. Please try again later.",
		"医学知识库暂时不可用，请稍后再试。"))
	ErrGeneration = Register(New(MakeCode(ServiceMedbot, CategoryNetwork, 3),
		http.StatusServiceUnavailable, codes.Unavailable,
		"The assistant could not generate an answer right now. Please try again later.",
		"助手暂时无法生成回答，请稍后再试。"))

	// 超时 (类别 11)
	ErrRequestTimeout = Register(New(MakeCode(ServiceMedbot, CategoryTimeout, 1),
		http.StatusGatewayTimeout, codes.DeadlineExceeded,
		"The request took too long. Please try again.",
		"请求超时，请重试。"))

	// 配置错误 (类别 12)，仅在启动阶段出现
	ErrConfiguration = Register(New(MakeCode(ServiceMedbot, CategoryConfig, 1),
		http.StatusInternalServerError, codes.FailedPrecondition,
		"Service is misconfigured",
		"服务配置错误"))
)
