/* Copyright 2025 Fieldsync Authors
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

package consts

var (
	// FieldsyncDirName is the name of the directory containing fieldsync files
	FieldsyncDirName = "fieldsync"
	// FieldsyncDBFileName is a filename for the fieldsync SQLite database
	FieldsyncDBFileName = "fieldsync.db"
	// ConfigFilename is the name of the config file
	ConfigFilename = "fieldsyncrc"

	// SyncMetaTable is the reserved logical table holding per-table watermarks
	SyncMetaTable = "sync_meta"

	// SystemSession is the key for the session blob in the system table
	SystemSession = "session"
	// SystemUser is the key for the user profile snapshot in the system table
	SystemUser = "user"
	// SystemCachedAt is the timestamp at which tables were last bulk-cached
	SystemCachedAt = "cached_at"
	// SystemCachedTables is the manifest of bulk-cached table names
	SystemCachedTables = "cached_tables"
	// SystemLastUpgradeCheck is the timestamp of the most recent upgrade check
	SystemLastUpgradeCheck = "last_upgrade_check"
)
