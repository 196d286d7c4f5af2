/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package config

import (
	"errors"
	"sync"
)

// Runtime holds the runtime state of the server. The configuration is
// immutable once initialized; components receive it at construction time.
type Runtime struct {
	Home   string
	Config Config
}

var (
	runtimeInstance *Runtime
	runtimeOnce     sync.Once
)

// InitializeRuntime initializes the runtime configuration exactly once.
func InitializeRuntime(home string, cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration cannot be nil")
	}

	initialized := false
	runtimeOnce.Do(func() {
		runtimeInstance = &Runtime{
			Home:   home,
			Config: *cfg,
		}
		initialized = true
	})
	if !initialized {
		return errors.New("runtime configuration is already initialized")
	}
	return nil
}

// GetRuntime returns the initialized runtime configuration.
func GetRuntime() *Runtime {
	if runtimeInstance == nil {
		panic("Runtime configuration is not initialized. Call InitializeRuntime() first.")
	}
	return runtimeInstance
}

// ResetRuntime clears the runtime configuration. Used by tests only.
func ResetRuntime() {
	runtimeInstance = nil
	runtimeOnce = sync.Once{}
}
