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

import "github.com/sirupsen/logrus"

// trace emits a debug-level log line through logger, if non-nil, for
// reactor-internal bookkeeping. A Reactor with a nil Logger pays nothing
// beyond this check.
func trace(logger *logrus.Logger, id OperationID, msg string, fields logrus.Fields) {
	if logger == nil || !logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["operation_id"] = id
	logger.WithFields(fields).Debug(msg)
}
