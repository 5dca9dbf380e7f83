// Package picdex embeds the picdex image search engine in a Go program.
//
// The client talks to Redis directly (or scans a local directory) and runs
// the same ranking and indexing code as the picdex API server; no HTTP hop
// is involved.
//
//	client, _ := picdex.New(ctx,
//	    picdex.WithRedis("localhost:6379", ""),
//	    picdex.WithVision(clip, 512),
//	)
//	defer client.Close()
//
//	item, _ := client.Index().Add(ctx, raw, picdex.ImageMeta{SourceURI: "s3://photos/cat.png"})
//	hits, _ := client.Search().Text(ctx, "a sleeping cat", picdex.TextQuery{Count: 5})
//
// Without Redis, WithLocal scores every file under a directory per query:
//
//	client, _ := picdex.New(ctx, picdex.WithLocal("./images"), picdex.WithVision(clip, 512))
package picdex
