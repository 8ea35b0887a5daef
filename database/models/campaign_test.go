// Copyright 2026 Blink Labs Software
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

package models_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/stretchr/testify/assert"
)

func TestCampaignIsOpen(t *testing.T) {
	deadline := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	c := &models.Campaign{Deadline: deadline}
	assert.True(t, c.IsOpen(deadline.Add(-time.Second)))
	assert.False(t, c.IsOpen(deadline), "campaign must close exactly at the deadline")
	assert.False(t, c.IsOpen(deadline.Add(time.Hour)))
}

func TestMigrateModelsTableNames(t *testing.T) {
	seen := make(map[string]struct{})
	for _, model := range models.MigrateModels {
		tabler, ok := model.(interface{ TableName() string })
		if !ok {
			t.Fatalf("model %T does not define a table name", model)
		}
		name := tabler.TableName()
		if _, dup := seen[name]; dup {
			t.Fatalf("duplicate table name %q", name)
		}
		seen[name] = struct{}{}
	}
	assert.Len(t, seen, 7)
}
