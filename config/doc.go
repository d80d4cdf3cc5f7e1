// Package config 提供 ModelFlow SDK 的配置管理功能。
//
// 包含配置加载与热重载：从默认值出发，依次被 YAML 文件和
// MODELFLOW_* 环境变量覆盖，并可转换为 factory 注册表配置。
// provider 条目中留空的凭证由各 provider 自己的环境变量链补全。
package config
