// Package rangecache provides cache backends for trusted range lists.
//
// Both backends satisfy the cloudflareip.Cache interface: Memory keeps lists
// in process using a ristretto cache, Redis shares them between processes
// through a redigo connection pool.
package rangecache
