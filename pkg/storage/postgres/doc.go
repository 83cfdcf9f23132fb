// Package postgres provides networked library backends: a PostgreSQL package
// table, an S3 object source and a Redis publisher for built dependency maps.
package postgres
