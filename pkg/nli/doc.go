// Package nli provides natural language inference classifiers used to score
// premise/hypothesis pairs for contradiction.
//
// A Classifier returns a probability distribution over the model's labels for each
// pair. Which output index means "contradiction" is resolved once, when the model is
// loaded, from the model's id2label vocabulary (see ResolveLabels).
//
// # Backends
//
//   - onnx: a local model directory with model.onnx, tokenizer.json and config.json,
//     run through ONNX Runtime on CPU or CUDA
//   - http: a remote inference server exposing POST /classify
//   - mock: deterministic scores for tests
//
// # Usage
//
//	loader := nli.NewLoader(nli.LoaderConfig{Backend: nli.BackendONNX, Device: "cuda:0"})
//	clf, err := loader.Load(ctx, "/models/mdeberta-v3-base-xnli")
//	defer clf.Close()
//
//	scores, err := nli.ContradictionScores(ctx, clf, pairs, 128)
package nli
