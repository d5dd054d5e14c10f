// Package store 提供问答服务的向量检索层。
//
// 每个后端都实现 biz.Retriever 与 storage.Client，由 New 按配置选择。
// 所有后端只读，不负责写入或建表。
package store
