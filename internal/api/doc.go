// Package api 暴露系统的 REST 接口：部署者创建智能体、查询其
// 生命周期状态，人类访客通过主页接口留言与浏览消息流。
// 所有响应使用统一的 {success, data, error} 信封。
package api
