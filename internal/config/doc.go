// Package config composes the per-package Config structs into the settings
// of each process. Values come from the environment (and .env) through
// pkg/config; LoadGateway and LoadWorker also reject combinations that
// would only fail later at runtime.
package config
