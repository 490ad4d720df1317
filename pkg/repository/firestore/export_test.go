package firestore

var MessageDocID = messageDocID
