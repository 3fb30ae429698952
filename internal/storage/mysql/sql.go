package mysql

// Rows per multi-row INSERT; keeps statements well under max_allowed_packet.
const insertChunk = 200

const deleteOpportunitiesSQL = `DELETE FROM opportunities`

const insertOpportunitiesPrefix = "INSERT INTO opportunities\n" +
	"  (id, position, title, org, section, duration, languages, tags, fee, min_age, image)\nVALUES "

const deleteHotelsSQL = `DELETE FROM hotels`

const insertHotelsPrefix = "INSERT INTO hotels\n" +
	"  (id, position, name, area, thumb, currency, price_per_night, affiliate_url)\nVALUES "

const insertMissSQL = `
INSERT INTO ingest_misses (feed, position, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE seen_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const opportunityColumns = `id, title, org, section, duration, languages, tags, fee, min_age, image`

// Feed order is the catalog order; lanes depend on it.
const listOpportunitiesSQL = `SELECT ` + opportunityColumns + ` FROM opportunities ORDER BY position`

const getOpportunitySQL = `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = ?`

const listHotelsSQL = `
SELECT id, name, area, thumb, currency, price_per_night, affiliate_url
FROM hotels
ORDER BY position
`
