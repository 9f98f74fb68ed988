// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

/*
Package ingest turns inbound session messages into catalog entries.

For each message the pipeline:

 1. skips broadcast, system and non-media messages (ErrSkipped)
 2. classifies the content tags (image > video > audio)
 3. fetches the payload with a timeout (ErrRetrieval on failure)
 4. writes it to the binary store under <kind>-<unixnano><ext>, generating a
    new name if the name is taken (ErrStore on failure)
 5. inserts the entry into the catalog, removing the binary again if the
    catalog rejects it (ErrCatalog)

The catalog notifies live viewers on commit, so the pipeline itself only
forwards session connection updates.

A failed message is logged and dropped; it never stops the pipeline. Messages
redelivered by the session after a reconnect are captured again as new
entries.
*/
package ingest
