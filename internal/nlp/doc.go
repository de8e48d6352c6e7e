// Package nlp provides the tokenizers, classifier and model sources behind the
// ports.ModelLoader and ports.ModelSource interfaces.
//
// Models are YAML documents listing sample utterances per category. Loading one
// trains a multinomial naive Bayes classifier over the samples' tokens.
package nlp
