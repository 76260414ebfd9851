// Package pgstore implements the billing.Store contract on PostgreSQL via
// pgx/v5. Lifecycle operations run inside pgx transactions; subscription
// reads performed within a transaction take a row lock (SELECT ... FOR
// UPDATE) so concurrent lifecycle calls on the same subscription serialize
// instead of racing.
//
// The store also implements billing.PlanCatalog and billing.UserSource, so
// one connected store can back the lifecycle service and the
// auto-subscribe batch job.
//
// Monetary columns are NUMERIC(12,2); values cross the wire as strings and
// are parsed into shopspring decimals to avoid any float conversion.
// Schema migrations live in the migrations directory in goose format and
// are applied with pkg/pg.Migrate.
package pgstore
