// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns created by data/migrations.
//
// Repositories build SQL from these definitions so that a column rename is a
// one-line change here plus a migration.
package schema
