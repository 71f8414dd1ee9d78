// Package arxivsearch is an embeddable client for arXiv paper similarity search
// over a Redis Stack or Valkey index loaded by arxivload.
//
//	client, _ := arxivsearch.New(ctx,
//	    arxivsearch.WithRedis("localhost:6379", ""),
//	    arxivsearch.WithProvider("huggingface", 768, myEmbedder),
//	)
//	defer client.Close()
//
//	similar, _ := client.ByPaper(ctx, "2101.00001", arxivsearch.Query{K: 10})
//	byText, _ := client.ByText(ctx, "graph neural networks", arxivsearch.Query{
//	    Categories: []string{"cs.LG"},
//	    Years:      []string{"2021", "2022"},
//	})
//	page, _ := client.List(ctx, arxivsearch.Page{Limit: 20})
//
// Providers registered without an embedder still serve ByPaper through the
// vectors stored with each paper.
package arxivsearch
