package store

// Key layout. Slugs never contain '/', ids are fixed-width hex, and spec
// section names are a closed set, so plain '/' separators are unambiguous.

func keyProject(slug string) []byte {
	return []byte("proj/" + slug)
}

func keyProjectPrefix() []byte {
	return []byte("proj/")
}

func keyTask(slug, taskID string) []byte {
	return []byte("task/" + slug + "/" + taskID)
}

func keyTaskPrefix(slug string) []byte {
	return []byte("task/" + slug + "/")
}

func keyQuestion(taskID, questionID string) []byte {
	return []byte("ques/" + taskID + "/" + questionID)
}

func keyQuestionPrefix(taskID string) []byte {
	return []byte("ques/" + taskID + "/")
}

func keySpecSection(slug, section string) []byte {
	return []byte("spec/" + slug + "/" + section)
}

func keySpecSectionPrefix(slug string) []byte {
	return []byte("spec/" + slug + "/")
}

func keySpecRevision(slug, section, revisionID string) []byte {
	return []byte("specrev/" + slug + "/" + section + "/" + revisionID)
}

func keySpecRevisionPrefix(slug, section string) []byte {
	return []byte("specrev/" + slug + "/" + section + "/")
}

func keySpecRevisionProjectPrefix(slug string) []byte {
	return []byte("specrev/" + slug + "/")
}

func keyWebhook(slug, webhookID string) []byte {
	return []byte("hook/" + slug + "/" + webhookID)
}

func keyWebhookPrefix(slug string) []byte {
	return []byte("hook/" + slug + "/")
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, for use as an iterator upper bound.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
