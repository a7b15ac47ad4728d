// Package nlog provides leveled, structured logging for the compactor core
// and its ambient services. It wraps zap the way the teacher's own cmn/nlog
// wraps glog: a handful of package-level Xxxln/Xxxf funcs, no logger object
// threading required at call sites.
/*
 * Copyright 2025 BergLoom
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

package nlog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	sug = mustBuild()
)

func mustBuild() *zap.SugaredLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.TimeKey = "ts"
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(os.Stderr), zapcore.InfoLevel)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// SetLevel reconfigures the minimum emitted level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.TimeKey = "ts"
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(os.Stderr), lvl)
	mu.Lock()
	sug = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	mu.Unlock()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sug
}

func Infoln(args ...any)                    { get().Infoln(args...) }
func Infof(format string, args ...any)      { get().Infof(format, args...) }
func Warningln(args ...any)                 { get().Warnln(args...) }
func Warningf(format string, args ...any)   { get().Warnf(format, args...) }
func Errorln(args ...any)                   { get().Errorln(args...) }
func Errorf(format string, args ...any)     { get().Errorf(format, args...) }
func Fatalln(args ...any)                   { get().Fatalln(args...) }

// Flush drains buffered log entries; call before process exit.
func Flush() { _ = get().Sync() }
