// Package shelfrec provides a Go client for the shelfrecd recommendation API.
//
//	client, _ := shelfrec.New("http://localhost:8080", shelfrec.WithAPIKey(key))
//	recs, _ := client.Recommend(ctx, shelfrec.Movies, shelfrec.Query{Category: "drama", TopN: 5})
//	for _, it := range recs.Items {
//	    fmt.Println(it.Rank, it.Fields["Title"])
//	}
//
// The client keeps the session ID issued by the server, so Export returns
// the CSV of the client's latest recommendation.
package shelfrec
