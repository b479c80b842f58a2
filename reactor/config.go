/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reactor

// Config holds the tunables for constructing a Reactor.
type Config struct {
	// QueueSize is the number of submission queue entries to request from
	// the kernel, and the capacity to preallocate for the state arena and
	// staging buffer. Rounded up to a power of two by the kernel.
	QueueSize uint32
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		QueueSize: 512,
	}
}
