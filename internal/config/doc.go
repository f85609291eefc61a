// Package config loads the YAML configuration shared by didctl and ledgerd.
//
// Load reads the file, applies DIDCHAIN_* environment overrides, fills in
// defaults and validates. Environment variables:
//
//	DIDCHAIN_AUTOPUBLISH, DIDCHAIN_AUTOSAVE, DIDCHAIN_AUTOSAVE_BATCH_SIZE,
//	DIDCHAIN_TEST_MODE, DIDCHAIN_STORAGE_DRIVER, DIDCHAIN_STORAGE_PATH,
//	DIDCHAIN_STORAGE_DSN, DIDCHAIN_LEDGER_DRIVER, DIDCHAIN_LEDGER_URL,
//	DIDCHAIN_LEDGER_TIMEOUT, DIDCHAIN_LOG_LEVEL, DIDCHAIN_LOG_FORMAT,
//	DIDCHAIN_LISTEN_ADDR
//
// Example file:
//
//	version: 1
//	account:
//	  autopublish: true
//	  autosave: batch
//	  batch_size: 8
//	storage:
//	  driver: file
//	  path: /var/lib/didchain/state.json
//	ledger:
//	  driver: http
//	  url: http://localhost:8780
//	  timeout: 10s
//	log:
//	  level: info
//	  format: json
package config
