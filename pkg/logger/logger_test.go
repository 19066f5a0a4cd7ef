/*
 * Copyright 2025 Oleg Pimenov.
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

package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	log, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if log == nil {
		t.Fatal("New should return a logger")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	config := &Config{Level: "not-a-level"}

	if _, err := New(config); err == nil {
		t.Error("Expected error for invalid level")
	}
}

func TestNewComponentLogger(t *testing.T) {
	log, err := NewComponentLogger("migrate", &Config{Level: "info"})
	if err != nil {
		t.Fatalf("Failed to create component logger: %v", err)
	}

	componentLogger := log.WithComponent("sub")
	if componentLogger.GetLevel() == zerolog.Disabled {
		t.Error("Component logger should not be disabled")
	}
}

func TestSetDebug(t *testing.T) {
	log, err := New(&Config{Level: "info"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	log.SetDebug(true)
	log.SetDebug(false)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Level == "" {
		t.Error("Default config should have a level set")
	}

	if config.Output == "" {
		t.Error("Default config should have an output set")
	}
}
