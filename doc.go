// Package contradict detects internal contradictions between the sentences of a text.
//
// A call runs a fixed pipeline: the text is segmented into sentences, the sentences
// are embedded and candidate pairs are chosen from a similarity band, each candidate
// is scored by an NLI classifier in both directions, a lexical numeric/date heuristic
// boosts the scores, and the surviving pairs are deduplicated and ranked.
//
// # Basic Usage
//
//	client, err := contradict.NewClient(&contradict.Config{
//		BaseModelPath:      "models/mdeberta-v3-base-xnli",
//		FinetunedModelPath: "models/finetuned-contradiction",
//		Classifiers: nli.NewLoader(nli.LoaderConfig{
//			Backend: nli.BackendONNX,
//			Device:  "cuda:0",
//		}),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	result := client.Analyze(ctx, text, &types.Options{
//		Threshold: types.Float64(0.8),
//	})
//	for _, c := range result.Contradictions {
//		fmt.Printf("#%d %.4f %q <-> %q\n", c.ID, c.Confidence, c.Sentence1, c.Sentence2)
//	}
//
// # Failures
//
// Analyze never returns a Go error. Unsupported modes, encoder failures, classifier
// failures and timeouts produce a result with Success set to false and the message in
// Metadata.Error. Text with fewer than two sentences succeeds with an empty result.
//
// # Models
//
// Loaded models are held in single-slot caches shared by all calls on a Client. A call
// holds a lease on the models it uses, so a concurrent model switch or ClearCache waits
// for it to finish. On accelerators, switching checkpoints while memory utilisation is
// above the high-water mark unloads the current model before loading the next.
package contradict
