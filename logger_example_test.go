// Copyright 2026 The nutsdb Author. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scanexec_test

import (
	"fmt"

	"github.com/nutsdb/scanexec"
)

type testLogger struct{}

func (l *testLogger) Printf(format string, args ...any) {
	fmt.Printf("testlogger:"+format+"\n", args...)
}

func ExampleILogger_Printf() {
	logger := &testLogger{}
	scanexec.SetLogger(logger)

	scanexec.GetLogger().Printf("scan %s", "c")
	scanexec.GetLogger().Printf("yielded %d times", 2)
	scanexec.GetLogger().Printf("index %s on %s dropped", "x_1", "c")
	// Output:
	// testlogger:scan c
	// testlogger:yielded 2 times
	// testlogger:index x_1 on c dropped
}
